// Command clusterbal runs the balancing/allocation/evacuation core against
// a YAML cluster snapshot from the command line.
package main

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/hsalcedo/clusterbal/cmd/clusterbal/app"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	if err := app.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
