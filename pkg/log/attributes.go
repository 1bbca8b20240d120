// Standard attribute keys. Keys follow a hierarchical naming convention
// ("testcase.id", "data.samples") so log output can be filtered by prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "RandomForest", "GradientBoosting", "GLM"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	// Examples: "testng", "sink", "ensemble"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of a test case run.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in a frame.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns of a design matrix.
	FeaturesKey = "data.features"

	// DistributionKey records the resolved distribution family.
	DistributionKey = "data.distribution"
)

// Test harness context
const (
	// TestcaseIDKey is the testcase_id cell of a table row.
	TestcaseIDKey = "testcase.id"

	// AlgorithmKey is the algorithm a test case targets ("drf", "gbm", "glm").
	AlgorithmKey = "testcase.algorithm"

	// NegativeKey marks rows from a negative table.
	NegativeKey = "testcase.negative"

	// StatusKey records the outcome status of a test case.
	StatusKey = "testcase.status"

	// DatasetIDKey identifies a dataset from the characteristics file.
	DatasetIDKey = "dataset.id"

	// DatasetTierKey is the size tier directory of a dataset ("smalldata", "bigdata").
	DatasetTierKey = "dataset.tier"

	// FilePathKey is the path of a table, characteristics file, or data file.
	FilePathKey = "file.path"

	// ParamKey names a parameter column being applied or overridden.
	ParamKey = "param.name"

	// RunIDKey is the uuid of one harness invocation.
	RunIDKey = "run.id"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MSEKey records the training mean squared error.
	MSEKey = "metrics.mse"

	// AUCKey records the training ROC AUC, or "NA" when undefined.
	AUCKey = "metrics.auc"

	// IterationKey records the current iteration number during iterative processes.
	IterationKey = "training.iteration"
)

// Error and Warning Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains estimator hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseValidate = "validate"
	PhaseResolve  = "resolve"
	PhaseTraining = "training"
	PhaseScoring  = "scoring"
	PhasePersist  = "persist"
)
