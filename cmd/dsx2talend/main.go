// dsx2talend migrates IBM DataStage .dsx exports into Talend Studio job
// projects.
package main

import (
	"os"

	"github.com/hupe1980/dsx2talend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
