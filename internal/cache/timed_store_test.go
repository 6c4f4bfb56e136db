// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTimedStore_ValuesOldestFirst(t *testing.T) {
	s := NewTimedStore[string]()
	base := time.Now()

	s.Put("c", "third", base.Add(3*time.Second))
	s.Put("a", "first", base.Add(1*time.Second))
	s.Put("b", "second", base.Add(2*time.Second))

	got := s.Values()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("Values() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTimedStore_PutReplaces(t *testing.T) {
	s := NewTimedStore[int]()
	base := time.Now()
	s.Put("k", 1, base)
	s.Put("k", 2, base.Add(time.Second))

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if v, ok := s.Get("k"); !ok || v != 2 {
		t.Errorf("Get(k) = %d, %v; want 2, true", v, ok)
	}
}

func TestTimedStore_UpdateAndRemove(t *testing.T) {
	s := NewTimedStore[int]()
	s.Put("k", 1, time.Now())

	if !s.Update("k", func(v *int) { *v += 10 }) {
		t.Fatal("Update(k) = false")
	}
	if v, _ := s.Get("k"); v != 11 {
		t.Errorf("after Update, Get(k) = %d, want 11", v)
	}
	if s.Update("missing", func(*int) {}) {
		t.Error("Update(missing) = true")
	}

	if v, ok := s.Remove("k"); !ok || v != 11 {
		t.Errorf("Remove(k) = %d, %v", v, ok)
	}
	if _, ok := s.Remove("k"); ok {
		t.Error("second Remove(k) succeeded")
	}
}

func TestTimedStore_TrimToKeepsMostRecent(t *testing.T) {
	tests := []struct {
		size, limit int
	}{
		{10, 3},
		{5, 5},
		{5, 0},
		{100, 37},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_to_%d", tt.size, tt.limit), func(t *testing.T) {
			s := NewTimedStore[int]()
			base := time.Now()
			// Insert out of order so the heap has work to do.
			for i := tt.size - 1; i >= 0; i-- {
				s.Put(fmt.Sprintf("k%d", i), i, base.Add(time.Duration(i)*time.Millisecond))
			}

			evicted := s.TrimTo(tt.limit)
			wantEvicted := tt.size - tt.limit
			if len(evicted) != wantEvicted {
				t.Fatalf("evicted %d, want %d", len(evicted), wantEvicted)
			}
			for i, v := range evicted {
				if v != i {
					t.Errorf("evicted[%d] = %d, want %d (oldest first)", i, v, i)
				}
			}

			kept := s.Values()
			if len(kept) != tt.limit {
				t.Fatalf("kept %d, want %d", len(kept), tt.limit)
			}
			for i, v := range kept {
				if want := tt.size - tt.limit + i; v != want {
					t.Errorf("kept[%d] = %d, want %d", i, v, want)
				}
			}
		})
	}
}

func TestTimedStore_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	s := NewTimedStore[int]()
	ts := time.Now()
	for i := 0; i < 20; i++ {
		s.Put(fmt.Sprintf("k%d", i), i, ts)
	}
	s.TrimTo(5)
	for i, v := range s.Values() {
		if v != 15+i {
			t.Errorf("Values()[%d] = %d, want %d", i, v, 15+i)
		}
	}
}

func TestTimedStore_SinceAndEvictBefore(t *testing.T) {
	s := NewTimedStore[int]()
	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Put(fmt.Sprintf("k%d", i), i, base.Add(time.Duration(i)*time.Second))
	}

	recent := s.Since(base.Add(7 * time.Second))
	if len(recent) != 3 || recent[0] != 7 {
		t.Errorf("Since(+7s) = %v, want [7 8 9]", recent)
	}

	old := s.EvictBefore(base.Add(4 * time.Second))
	if len(old) != 4 {
		t.Errorf("EvictBefore(+4s) evicted %d, want 4", len(old))
	}
	if s.Len() != 6 {
		t.Errorf("Len() = %d, want 6", s.Len())
	}
}

func TestTimedStore_Touch(t *testing.T) {
	s := NewTimedStore[string]()
	base := time.Now()
	s.Put("a", "a", base)
	s.Put("b", "b", base.Add(time.Second))

	s.Touch("a", base.Add(time.Hour))
	if v := s.TrimTo(1); len(v) != 1 || v[0] != "b" {
		t.Errorf("TrimTo(1) after Touch evicted %v, want [b]", v)
	}
}

func TestTimedStore_Concurrent(t *testing.T) {
	s := NewTimedStore[int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Put(fmt.Sprintf("w%d-%d", w, i), i, time.Now())
				if i%50 == 0 {
					s.TrimTo(100)
				}
				_ = s.Since(time.Now().Add(-time.Second))
			}
		}(w)
	}
	wg.Wait()

	s.TrimTo(100)
	if s.Len() > 100 {
		t.Errorf("Len() = %d after TrimTo(100)", s.Len())
	}
}

type sample struct {
	Status int
	Path   string
}

func TestTimedStore_ConcurrentUpdateAndSince(t *testing.T) {
	base := time.Now()
	tests := []struct {
		name  string
		write func(s *TimedStore[sample], key string, i int)
		read  func(s *TimedStore[sample]) []sample
	}{
		{
			name: "update vs since",
			write: func(s *TimedStore[sample], key string, i int) {
				s.Update(key, func(v *sample) { v.Status = 200 + i%300; v.Path = fmt.Sprintf("/p/%d", i) })
			},
			read: func(s *TimedStore[sample]) []sample { return s.Since(base) },
		},
		{
			name: "update vs values",
			write: func(s *TimedStore[sample], key string, i int) {
				s.Update(key, func(v *sample) { v.Status = i })
			},
			read: func(s *TimedStore[sample]) []sample { return s.Values() },
		},
		{
			name: "touch vs since",
			write: func(s *TimedStore[sample], key string, i int) {
				s.Touch(key, base.Add(time.Duration(i)*time.Millisecond))
			},
			read: func(s *TimedStore[sample]) []sample { return s.Since(base) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTimedStore[sample]()
			const keys = 32
			for k := 0; k < keys; k++ {
				s.Put(fmt.Sprintf("k%d", k), sample{}, base.Add(time.Duration(k)*time.Millisecond))
			}

			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(2)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 500; i++ {
						tt.write(s, fmt.Sprintf("k%d", (i+w)%keys), i)
					}
				}(w)
				go func() {
					defer wg.Done()
					for i := 0; i < 500; i++ {
						if got := tt.read(s); len(got) != keys {
							t.Errorf("read %d values, want %d", len(got), keys)
							return
						}
					}
				}()
			}
			wg.Wait()
		})
	}
}

func TestTimedStore_PutIfAbsent(t *testing.T) {
	s := NewTimedStore[int]()
	base := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.PutIfAbsent("evt-1|SQL_INJECTION", 1, base) {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 || s.Len() != 1 {
		t.Errorf("inserted = %d, Len = %d, want exactly one", inserted, s.Len())
	}
	if s.PutIfAbsent("evt-1|SQL_INJECTION", 2, base) {
		t.Error("PutIfAbsent replaced an existing key")
	}
	if v, _ := s.Get("evt-1|SQL_INJECTION"); v != 1 {
		t.Errorf("value = %d, want the first insert", v)
	}
}
