// Package scigotestng is a parameterized test harness for the scigo
// supervised learners: distributed random forest (DRF), gradient boosting
// (GBM) and generalized linear models (GLM).
//
// Test cases live in CSV (or xlsx) tables, one positive and one negative
// table per algorithm. Every row names a training dataset from the dataset
// characteristics file, selects a distribution or family with flag columns,
// and may override hyperparameters. The harness validates each row, builds
// the algorithm configuration, trains the model, scores the training frame
// and records MSE (and AUC for binary classifiers) in a SQL table.
//
// # Packages
//
//   - testng: table loader, parameter resolver, dataset registry and runner
//   - frame: typed columns, CSV parsing and the keyed frame store
//   - sklearn/ensemble, sklearn/linear_model, sklearn/tree: the estimators
//   - distribution, metrics: families, link functions and scoring
//   - sink: result persistence on sqlx (postgres, sqlite3) or memory
//   - config, report: harness configuration and run reports
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Quick Start
//
//	scigo-testng datasets
//	scigo-testng validate --algorithm glm
//	scigo-testng run --size smalldata --dry-run --report run.md
//
// Or from Go:
//
//	store := frame.NewStore()
//	reg, err := testng.LoadRegistry("datasetCharacteristics.csv", "data", store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.CloseAll()
//
//	cases := testng.ReadAllTestcases(reg, specs, testng.GLM)
//	runner := testng.NewRunner(testng.NewResolver(store), testng.NewTrainer(store), sink.NewMemorySink())
//	for _, o := range runner.RunAll(ctx, cases) {
//	    fmt.Println(o.TestCase.ID, o.Status)
//	}
//
// # Outcomes
//
// A row ends as PASSED, FAILED, INVALID or NOT IMPL. Negative rows pass
// when training fails and are never persisted. The model, score frames and
// bounds frame of a test case are released before the next one starts;
// dataset frames are parsed once and released with their size tier.
package scigotestng
