// Package eligibility defines the domain model of the visa–job eligibility
// engine: worker visa profiles, job posting constraints, rule outcomes, and the
// explainable result returned to the job board.
//
// Sub-packages:
//   - rules: the Rule contract, built-in rule kinds, and the Registry
//   - catalog: YAML catalog loading into a Registry
//   - evaluator: the single place outcomes are aggregated into a Result
//   - matcher: the bulk "jobs for a visa" / "visas for a job" queries
//   - cache: verdict memoization keyed by fingerprint and rule-set version
//   - service, handler, store, ports: the service surface around the engine
package eligibility
