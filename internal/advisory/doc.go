// Package advisory defines the planning, research, verification and
// synthesis stages that turn an analysis digest into a business strategy.
//
// Each stage is a narrow interface returning an Outcome. Concrete adapters
// back them with an LLM client, a web search client, or the offline degraded
// payload. Every stage also renders a fixed-template digest of its result,
// which is the only thing the following stage consumes.
package advisory
