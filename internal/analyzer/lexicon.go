package analyzer

import "regexp"

// entityWeights scores entity types for the technical-depth signal.
var entityWeights = map[string]float64{
	"technology": 0.25,
	"skill":      0.20,
	"metric":     0.10,
}

// technicalVocabulary lists domain-technical terms counted when no entity
// tags cover them. Matching is lowercase whole-word.
var technicalVocabulary = map[string]bool{
	"api": true, "architecture": true, "algorithm": true, "backend": true,
	"cache": true, "ci/cd": true, "cluster": true, "concurrency": true,
	"container": true, "database": true, "deployment": true, "distributed": true,
	"framework": true, "frontend": true, "index": true, "kubernetes": true,
	"latency": true, "microservice": true, "microservices": true, "migration": true,
	"orchestration": true, "pipeline": true, "protocol": true, "query": true,
	"refactor": true, "refactoring": true, "replication": true, "scalability": true,
	"schema": true, "sharding": true, "sql": true, "testing": true,
	"throughput": true, "transaction": true,
}

// teamContextWords mark answers that describe working with other
// people, feeding the team-dynamics gap heuristic.
var teamContextWords = map[string]bool{
	"team": true, "teammates": true, "colleague": true, "colleagues": true,
	"manager": true, "stakeholder": true, "stakeholders": true, "we": true,
	"pair": true, "review": true, "mentored": true,
}

// challengeWords indicate the answer describes a difficulty faced.
var challengeWords = map[string]bool{
	"challenge": true, "challenging": true, "problem": true, "difficult": true,
	"obstacle": true, "issue": true, "struggle": true, "struggled": true,
	"hard": true, "blocker": true, "incident": true, "outage": true,
}

// exampleMarkers indicate the presence of a concrete example.
var exampleMarkers = []string{
	"for example", "for instance", "such as", "one time", "in one case",
	"specifically", "e.g.", "when i", "when we",
}

// quantPattern matches quantitative claims: numbers, percentages, scales.
var quantPattern = regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent|x|ms|seconds?|minutes?|hours?|days?|weeks?|months?|years?|users?|requests?|qps|rps|gb|tb|mb)?`)

// topicPatterns capture subjects via lexical patterns like "worked on X".
var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bworked on ([a-z0-9][a-z0-9 \-/+.#]{2,40})`),
	regexp.MustCompile(`(?i)\bexperience with ([a-z0-9][a-z0-9 \-/+.#]{2,40})`),
	regexp.MustCompile(`(?i)\busing ([a-z0-9][a-z0-9 \-/+.#]{2,30})`),
	regexp.MustCompile(`(?i)\bbuilt ([a-z0-9][a-z0-9 \-/+.#]{2,40})`),
	regexp.MustCompile(`(?i)\bresponsible for ([a-z0-9][a-z0-9 \-/+.#]{2,40})`),
}
