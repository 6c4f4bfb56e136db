// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package incident

import (
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
)

// Scoring weights.
const (
	baseWeight        = 0.4
	threatLevelWeight = 0.2
	blockedBonus      = 20
	criticalityBonus  = 20
)

// criticalTypes earn the criticality bonus.
var criticalTypes = map[models.ThreatType]bool{
	models.ThreatCommandInjection:        true,
	models.ThreatSQLInjection:            true,
	models.ThreatInsecureDeserialization: true,
	models.ThreatXXE:                     true,
}

// Score is the 0-100 severity score of a finding. Anomaly findings carry an
// explicit Score which is used as is; detector findings combine severity,
// the source event's threat level, block status and attack-type criticality.
func Score(f models.ThreatFinding, threatLevel models.Severity) float64 {
	if f.Score > 0 {
		return secutil.ClampFloat(f.Score, 0, 100)
	}
	s := f.Severity.BaseScore()*baseWeight + threatLevel.BaseScore()*threatLevelWeight
	if f.Blocked {
		s += blockedBonus
	}
	if criticalTypes[f.Type] {
		s += criticalityBonus
	}
	return secutil.ClampFloat(s, 0, 100)
}

var mitreTable = map[models.ThreatType]models.MitreMapping{
	models.ThreatSQLInjection:            {Tactic: "Initial Access", TechniqueID: "T1190", Technique: "Exploit Public-Facing Application"},
	models.ThreatNoSQLInjection:          {Tactic: "Initial Access", TechniqueID: "T1190", Technique: "Exploit Public-Facing Application"},
	models.ThreatLDAPInjection:           {Tactic: "Initial Access", TechniqueID: "T1190", Technique: "Exploit Public-Facing Application"},
	models.ThreatTemplateInjection:       {Tactic: "Initial Access", TechniqueID: "T1190", Technique: "Exploit Public-Facing Application"},
	models.ThreatXXE:                     {Tactic: "Initial Access", TechniqueID: "T1190", Technique: "Exploit Public-Facing Application"},
	models.ThreatXSS:                     {Tactic: "Initial Access", TechniqueID: "T1189", Technique: "Drive-by Compromise"},
	models.ThreatCommandInjection:        {Tactic: "Execution", TechniqueID: "T1059", Technique: "Command and Scripting Interpreter"},
	models.ThreatInsecureDeserialization: {Tactic: "Execution", TechniqueID: "T1203", Technique: "Exploitation for Client Execution"},
	models.ThreatPathTraversal:           {Tactic: "Discovery", TechniqueID: "T1083", Technique: "File and Directory Discovery"},
	models.ThreatSSRF:                    {Tactic: "Discovery", TechniqueID: "T1046", Technique: "Network Service Discovery"},
	models.ThreatHeaderInjection:         {Tactic: "Defense Evasion", TechniqueID: "T1036", Technique: "Masquerading"},
	models.ThreatPrototypePollution:      {Tactic: "Persistence", TechniqueID: "T1554", Technique: "Compromise Host Software Binary"},
	models.ThreatTrafficAnomaly:          {Tactic: "Impact", TechniqueID: "T1499", Technique: "Endpoint Denial of Service"},
	models.ThreatBehavioralAnomaly:       {Tactic: "Reconnaissance", TechniqueID: "T1595", Technique: "Active Scanning"},
	models.ThreatVulnScanner:             {Tactic: "Reconnaissance", TechniqueID: "T1595.002", Technique: "Vulnerability Scanning"},
	models.ThreatBruteForce:              {Tactic: "Credential Access", TechniqueID: "T1110", Technique: "Brute Force"},
}

// Mitre returns the ATT&CK mapping for t, or nil if none is known.
func Mitre(t models.ThreatType) *models.MitreMapping {
	m, ok := mitreTable[t]
	if !ok {
		return nil
	}
	return &m
}
