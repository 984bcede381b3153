package config

import (
	"io"

	"github.com/alecthomas/template"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/common/version"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

var infoTemplate = template.Must(template.New("shmem_info").Parse(
	`{{.Heading}} (pe {{.Rank}} of {{.NPes}})
  symmetric heap    {{.HeapSize}} bytes
  preallocated ctxs {{.PreallocContexts}}
  barrier           {{.Barrier}}
  broadcast         {{.Broadcast}}
  collect           {{.Collect}}
  alltoall          {{.AllToAll}}
  reduce            {{.Reduce}}
`))

type infoData struct {
	Heading                                string
	Rank, NPes, HeapSize, PreallocContexts  interface{}
	Barrier, Broadcast, Collect, AllToAll, Reduce string
}

// PrintInfo renders an SHMEM_INFO=1 diagnostic dump of cfg to w (PE 0
// writes it by convention; other PEs would just duplicate it). Colors
// the heading the way the teacher's CLI tooling highlights command
// output, through a colorable writer so it still renders correctly on
// a Windows console.
func PrintInfo(cfg *Config, rank, npes int, w io.Writer) error {
	bold := color.New(color.Bold).SprintFunc()
	data := infoData{
		Heading: bold("go-pgas runtime info"),
		Rank:    rank, NPes: npes,
		HeapSize: cfg.HeapSize, PreallocContexts: cfg.PreallocContexts,
		Barrier:   cfg.Algorithm[types.ClassBarrier],
		Broadcast: cfg.Algorithm[types.ClassBroadcast],
		Collect:   cfg.Algorithm[types.ClassCollect],
		AllToAll:  cfg.Algorithm[types.ClassAllToAll],
		Reduce:    cfg.Algorithm[types.ClassReduce],
	}
	return infoTemplate.Execute(w, data)
}

// Stdout wraps os.Stdout so ANSI color codes emitted by PrintInfo
// render on every platform the way the teacher's CLI output does.
func Stdout() io.Writer {
	return colorable.NewColorableStdout()
}

// PrintVersion writes the build version info SHMEM_VERSION=1 asks for.
func PrintVersion(w io.Writer) {
	_, _ = w.Write([]byte(version.Print("go-pgas") + "\n"))
}
