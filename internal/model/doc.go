// Package model defines the result structures shared by the attack stages,
// the report writers and the results store.
//
// This package contains the following main types:
//   - Run: one assessment, holding the sub-reports of every stage
//   - SchemeResult and Hit: the dictionary attack outcome per scheme
//   - CorrelationReport: the frequency correlation outcome per column
//   - ProfileReport: consolidated identities and their conflicts
//   - Severity: the risk grade derived from a recovery rate
//
// Design decision: We separate models into their own package to avoid
// circular dependencies. The pipeline, report and database packages all
// use these types.
package model
