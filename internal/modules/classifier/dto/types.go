package dto

type CheckResult struct {
	Configured      bool
	Binary          string
	BinaryReachable bool
	ChecksumValid   bool
	LifecycleOK     bool
	Name            string
	Version         string
	Labels          []string
	Error           string
}

type ClassifyInput struct {
	Snapshot string
}

type ClassifyOutput struct {
	Label string
}
