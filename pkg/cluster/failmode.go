package cluster

// FailMode enumerates the reasons capacity arithmetic can reject adding an
// instance to a node. The enumeration order below is a closed set and is
// significant: it is the stable tie-break order the tiered allocator
// (pkg/cluster/iterate) replicates when more than one FailMode ties for the
// highest failure count (see spec.md §9, "shrinkByType ties").
type FailMode int

const (
	FailMem FailMode = iota
	FailDisk
	FailCPU
	FailN1
	FailTags
	FailDiskCount
	FailSpindles
	FailNetwork
	FailDiskTemplate
	FailGroup
)

func (f FailMode) String() string {
	switch f {
	case FailMem:
		return "FailMem"
	case FailDisk:
		return "FailDisk"
	case FailCPU:
		return "FailCPU"
	case FailN1:
		return "FailN1"
	case FailTags:
		return "FailTags"
	case FailDiskCount:
		return "FailDiskCount"
	case FailSpindles:
		return "FailSpindles"
	case FailNetwork:
		return "FailNetwork"
	case FailDiskTemplate:
		return "FailDiskTemplate"
	case FailGroup:
		return "FailGroup"
	default:
		return "FailUnknown"
	}
}

// FailModeOrder is the closed, ordered enumeration of FailMode used as the
// stable secondary sort key wherever failure histograms must be compared
// deterministically.
var FailModeOrder = []FailMode{
	FailMem, FailDisk, FailCPU, FailN1, FailTags,
	FailDiskCount, FailSpindles, FailNetwork, FailDiskTemplate, FailGroup,
}
