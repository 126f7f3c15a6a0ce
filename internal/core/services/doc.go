// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): the indexer turns files into
// embedded chunks, retrieval turns questions into diverse,
// grounded answers.
//
// Services are pure Go with no CGO dependencies.
package services
