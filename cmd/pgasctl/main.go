// Command pgasctl is the CLI veneer over the library (component O):
// a local smoke-test runner that simulates a PE set in one process
// with the loopback transport, and a registry inspector for listing
// the algorithms available per collective class. Grounded in the
// teacher's kingpin-based command layout (app/command/flag), adapted
// from a cluster-driver CLI to a PGAS one.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/go-pgas/pkg/pgas"
	"github.com/jabolina/go-pgas/pkg/pgas/bootstrap"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/alltoall"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/barrier"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/broadcast"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/collect"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/reduce"
	"github.com/jabolina/go-pgas/pkg/pgas/config"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

var (
	app = kingpin.New("pgasctl", "Inspect and smoke-test the go-pgas runtime.")

	runCmd       = app.Command("run", "Simulate a PE set in-process and exercise barrier/broadcast/reduce.")
	runPEs       = runCmd.Flag("pes", "number of simulated PEs").Default("4").Int()
	runBarrier   = runCmd.Flag("barrier-algorithm", "override the barrier algorithm").String()
	runBroadcast = runCmd.Flag("broadcast-algorithm", "override the broadcast algorithm").String()
	runReduce    = runCmd.Flag("reduce-algorithm", "override the reduce algorithm").String()
	runDebug     = runCmd.Flag("debug", "enable debug-level logging").Bool()
	runInfo      = runCmd.Flag("info", "print a runtime config dump from pe 0, like SHMEM_INFO=1").Bool()

	algoCmd = app.Command("algorithms", "List the algorithms registered per collective class.")
)

func main() {
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case runCmd.FullCommand():
		runDemo()
	case algoCmd.FullCommand():
		printAlgorithms()
	}
}

func runDemo() {
	n := *runPEs
	if n < 1 {
		fmt.Fprintf(os.Stderr, "--pes must be at least 1, got %d\n", n)
		os.Exit(1)
	}

	net := transport.NewNetwork()
	group := bootstrap.NewLocalGroup(n, nil)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			demoPE(net, group, i, n)
		}(i)
	}
	wg.Wait()
}

func demoPE(net *transport.Network, group *bootstrap.Group, i, n int) {
	boot := bootstrap.NewLocal(types.PE(i), group)
	store := transport.NewMapStore()
	trans := transport.NewLoopTransport(net, types.PE(i), store)

	cfg, fault := config.FromEnv(collectives.Default())
	if fault != nil {
		fmt.Fprintf(os.Stderr, "pe %d: config: %v\n", i, fault)
		return
	}
	if *runBarrier != "" {
		cfg.Algorithm[types.ClassBarrier] = *runBarrier
	}
	if *runBroadcast != "" {
		cfg.Algorithm[types.ClassBroadcast] = *runBroadcast
	}
	if *runReduce != "" {
		cfg.Algorithm[types.ClassReduce] = *runReduce
	}
	cfg.Debug = *runDebug
	cfg.Info = *runInfo

	rt, fault := pgas.Init(boot, trans, cfg)
	if fault != nil {
		fmt.Fprintf(os.Stderr, "pe %d: init: %v\n", i, fault)
		return
	}
	defer rt.Finalize()

	ctx := context.Background()
	log := rt.Logger()

	if fault := rt.BarrierAll(ctx, cfg.Algorithm[types.ClassBarrier]); fault != nil {
		log.Errorf("barrier: %v", fault)
		return
	}

	payload, fault := rt.SymmetricAlloc(8)
	if fault != nil {
		log.Errorf("alloc: %v", fault)
		return
	}
	if rt.MyPE() == 0 {
		if fault := rt.PutInt64(ctx, payload, 42, 0); fault != nil {
			log.Errorf("seed: %v", fault)
			return
		}
	}
	if fault := rt.BarrierAll(ctx, cfg.Algorithm[types.ClassBarrier]); fault != nil {
		log.Errorf("barrier: %v", fault)
		return
	}

	broadcastDst, fault := rt.SymmetricAlloc(8)
	if fault != nil {
		log.Errorf("alloc: %v", fault)
		return
	}
	if fault := rt.Broadcast(ctx, rt.World(), broadcastDst, payload, 8, 0, cfg.Algorithm[types.ClassBroadcast]); fault != nil {
		log.Errorf("broadcast: %v", fault)
		return
	}
	v, fault := rt.GetInt64(ctx, broadcastDst, rt.MyPE())
	if fault != nil {
		log.Errorf("read back: %v", fault)
		return
	}
	log.Infof("broadcast delivered %d", v)

	reduceSrc, fault := rt.SymmetricAlloc(4)
	if fault != nil {
		log.Errorf("alloc: %v", fault)
		return
	}
	reduceDst, fault := rt.SymmetricAlloc(4)
	if fault != nil {
		log.Errorf("alloc: %v", fault)
		return
	}
	if fault := rt.PutInt32(ctx, reduceSrc, int32(rt.MyPE())+1, rt.MyPE()); fault != nil {
		log.Errorf("seed reduce: %v", fault)
		return
	}
	if fault := rt.BarrierAll(ctx, cfg.Algorithm[types.ClassBarrier]); fault != nil {
		log.Errorf("barrier: %v", fault)
		return
	}
	if fault := rt.Reduce(ctx, rt.World(), reduceDst, reduceSrc, 1, types.KindInt32, types.OpSum, cfg.Algorithm[types.ClassReduce]); fault != nil {
		log.Errorf("reduce: %v", fault)
		return
	}
	sum, fault := rt.GetInt32(ctx, reduceDst, rt.MyPE())
	if fault != nil {
		log.Errorf("read back: %v", fault)
		return
	}
	log.Infof("reduce sum = %d (expected %d)", sum, n*(n+1)/2)
}

func printAlgorithms() {
	classes := []struct {
		name  string
		algos []string
	}{
		{"barrier", []string{barrier.Linear, barrier.CompleteTree, barrier.Binomial, barrier.KNomial + "-4", barrier.KNomial + "-8", barrier.Dissemination}},
		{"broadcast", []string{broadcast.Linear, broadcast.CompleteTree, broadcast.Binomial, broadcast.KNomial + "-4", broadcast.KNomial + "-8", broadcast.KNomialSignal + "-4", broadcast.KNomialSignal + "-8", broadcast.ScatterCollect}},
		{"collect", []string{collect.Linear, collect.Ring, collect.Bruck, collect.RecursiveDoubling, collect.NeighborExchange}},
		{"alltoall", []string{alltoall.ShiftExchangeBarrier, alltoall.ShiftExchangeCounter, alltoall.ShiftExchangeSignal, alltoall.XorPairwiseBarrier, alltoall.XorPairwiseCounter, alltoall.XorPairwiseSignal, alltoall.ColorPairwiseBarrier, alltoall.ColorPairwiseCounter, alltoall.ColorPairwiseSignal}},
		{"alltoalls", []string{alltoall.StridedShiftExchange}},
		{"reduce", []string{reduce.Linear, reduce.Binomial, reduce.RecursiveDoubling, reduce.Rabenseifner}},
	}
	for _, c := range classes {
		fmt.Printf("%s: %s\n", c.name, strings.Join(c.algos, ", "))
	}
}
