// Package ammroute routes a quantity of one currency into another across a
// network of constant-product AMM pools, splitting the order over parallel
// venues and multi-hop paths to maximize what arrives.
//
// Two formulations are built from the same exchange graph:
//
//	milp/  bilinear MILP with order splits, fee budget, MTZ cycle
//	       elimination and an optional gas term, solved by gurobi_cl
//	nlp/   continuous model with exact AMM outputs and an optional
//	       acyclicity surrogate, solved locally from random starts
//
// Supporting packages:
//
//	exchange/          validated pools, reserves, fees and endpoints
//	ingest/            YAML and CSV instances, random generation
//	model/             solver-neutral model IR, LP and MIP-start export
//	matrix/            dense Jacobians for the local solver
//	route/             flow digraphs, cycles, execution order
//	solver/            engine interfaces; gurobicli/ and auglag/ adapters
//	sweep/             concurrent comparison grids with CSV reports
//	internal/config    viper configuration (file + AMMROUTE_* env)
//	internal/logger    slog with rotating files and trace ids
//	internal/telemetry OpenTelemetry tracing and Prometheus metrics
//
// The ammroute command in cmd/ammroute wires them together.
package ammroute
