package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Captain-Sangam/KubePeek/model"
	"github.com/Captain-Sangam/KubePeek/units"
)

// groupAccumulator holds running sums for one group. Percentages are only
// derived in finalize, after every node has been added.
type groupAccumulator struct {
	name     string
	nodes    []model.Node
	totalCPU float64
	totalMem float64
	usedCPU  float64
	usedMem  float64
	pods     int
}

func (acc *groupAccumulator) add(node model.Node) {
	acc.nodes = append(acc.nodes, node)
	acc.totalCPU += node.Capacity.CPUCores
	acc.totalMem += node.Capacity.MemBytes
	acc.usedCPU += node.Usage.CPUCores
	acc.usedMem += node.Usage.MemBytes
	acc.pods += node.Pods
}

// ListNodeGroups partitions the cluster's nodes into groups, in the order
// groups are first seen.
func (a *Aggregator) ListNodeGroups(ctx context.Context, cluster string) (groups []model.NodeGroup, err error) {
	start := time.Now()
	defer func() { observe("nodegroups", start, err) }()

	nodes, err := a.ListNodes(ctx, cluster)
	if err != nil {
		return nil, err
	}
	return BuildNodeGroups(a.rules, nodes), nil
}

// BuildNodeGroups folds nodes into groups using rules.
func BuildNodeGroups(rules []GroupRule, nodes []model.Node) []model.NodeGroup {
	var order []*groupAccumulator
	byName := make(map[string]*groupAccumulator)

	for _, node := range nodes {
		name := GroupName(rules, node.Tags)
		acc, ok := byName[name]
		if !ok {
			acc = &groupAccumulator{name: name}
			byName[name] = acc
			order = append(order, acc)
		}
		acc.add(node)
	}

	groups := make([]model.NodeGroup, 0, len(order))
	for _, acc := range order {
		groups = append(groups, finalizeGroup(acc))
	}
	return groups
}

func finalizeGroup(acc *groupAccumulator) (group model.NodeGroup) {
	base := model.NodeGroup{
		Name:          acc.name,
		Nodes:         acc.nodes,
		TotalCPUCores: acc.totalCPU,
		UsedCPUCores:  acc.usedCPU,
		TotalMemBytes: acc.totalMem,
		UsedMemBytes:  acc.usedMem,
		PodsCount:     acc.pods,
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered while finalizing node group", "group", acc.name, "panic", fmt.Sprint(r))
			degradedTotal.WithLabelValues("nodegroup").Inc()
			base.CPUPercentage = 0
			base.MemPercentage = 0
			group = base
		}
	}()

	base.TotalCPU = units.FormatCPU(acc.totalCPU)
	base.UsedCPU = units.FormatCPU(acc.usedCPU)
	base.TotalMemory = units.FormatGroupMemoryTotal(acc.totalMem)
	base.UsedMemory = units.FormatGroupMemory(acc.usedMem)
	base.CPUPercentage = percent(acc.usedCPU, acc.totalCPU)
	base.MemPercentage = percent(acc.usedMem, acc.totalMem)
	return base
}

// percent returns used/total as a whole percentage in [0, 100].
func percent(used, total float64) int {
	if total <= 0 || math.IsNaN(used) || math.IsNaN(total) {
		return 0
	}
	ratio := math.Min(used/total, 1)
	if ratio < 0 {
		return 0
	}
	return int(math.Round(ratio * 100))
}
