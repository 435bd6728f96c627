package app

import "github.com/hsalcedo/clusterbal/pkg/cluster"

// snapshot bundles the decoded cluster state every subcommand operates on.
type snapshot struct {
	nl     cluster.NodeList
	il     cluster.InstanceList
	groups map[int]cluster.Group
}
