package finance

import (
	"sort"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
)

// BucketNode is a bucket with its own and aggregated (own plus descendants) amounts
type BucketNode struct {
	ID           uint                `json:"id"`
	Key          string              `json:"key"`
	Label        string              `json:"label"`
	ParentID     *uint               `json:"parent_id,omitempty"`
	DefaultShare decimal.NullDecimal `json:"default_share"`
	OwnInflow    decimal.Decimal     `json:"own_inflow"`
	OwnUsed      decimal.Decimal     `json:"own_used"`
	Inflow       decimal.Decimal     `json:"inflow"`
	Used         decimal.Decimal     `json:"used"`
	Remaining    decimal.Decimal     `json:"remaining"`
	Children     []*BucketNode       `json:"children"`
}

// BucketSummary is a flattened tree row
type BucketSummary struct {
	ID        uint            `json:"id"`
	Key       string          `json:"key"`
	Label     string          `json:"label"`
	ParentID  *uint           `json:"parent_id,omitempty"`
	Depth     int             `json:"depth"`
	OwnInflow decimal.Decimal `json:"own_inflow"`
	OwnUsed   decimal.Decimal `json:"own_used"`
	Inflow    decimal.Decimal `json:"inflow"`
	Used      decimal.Decimal `json:"used"`
	Remaining decimal.Decimal `json:"remaining"`
}

// BuildBucketTree attaches every bucket to its parent and rolls amounts up from the leaves.
// inflow and used hold each bucket's own direct amounts; missing entries count as zero.
// A bucket whose parent does not exist becomes a root. Siblings are ordered by label.
func BuildBucketTree(buckets []models.FundBucket, inflow, used map[uint]decimal.Decimal) []*BucketNode {
	sorted := make([]models.FundBucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Label != sorted[j].Label {
			return sorted[i].Label < sorted[j].Label
		}
		return sorted[i].ID < sorted[j].ID
	})

	nodes := make(map[uint]*BucketNode, len(sorted))
	for _, b := range sorted {
		nodes[b.ID] = &BucketNode{
			ID:           b.ID,
			Key:          b.Key,
			Label:        b.Label,
			ParentID:     b.ParentID,
			DefaultShare: b.DefaultShare,
			OwnInflow:    inflow[b.ID],
			OwnUsed:      used[b.ID],
			Children:     []*BucketNode{},
		}
	}

	roots := make([]*BucketNode, 0)
	for _, b := range sorted {
		node := nodes[b.ID]
		if b.ParentID != nil && *b.ParentID != b.ID {
			if parent, ok := nodes[*b.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	visited := make(map[uint]bool, len(nodes))
	for _, root := range roots {
		aggregate(root, visited)
	}

	// Buckets caught in a parent cycle are unreachable from any root; surface them as roots.
	for _, b := range sorted {
		if !visited[b.ID] {
			node := nodes[b.ID]
			aggregate(node, visited)
			roots = append(roots, node)
		}
	}

	return roots
}

// aggregate resolves children before their parent and drops edges that close a cycle
func aggregate(node *BucketNode, visited map[uint]bool) {
	visited[node.ID] = true

	in := node.OwnInflow
	out := node.OwnUsed
	kept := node.Children[:0]
	for _, child := range node.Children {
		if visited[child.ID] {
			continue
		}
		aggregate(child, visited)
		in = in.Add(child.Inflow)
		out = out.Add(child.Used)
		kept = append(kept, child)
	}

	node.Children = kept
	node.Inflow = in
	node.Used = out
	node.Remaining = in.Sub(out)
}

// FlattenBucketTree lists the forest depth-first, parents before children
func FlattenBucketTree(roots []*BucketNode) []BucketSummary {
	var out []BucketSummary
	var walk func(nodes []*BucketNode, depth int)
	walk = func(nodes []*BucketNode, depth int) {
		for _, n := range nodes {
			out = append(out, BucketSummary{
				ID:        n.ID,
				Key:       n.Key,
				Label:     n.Label,
				ParentID:  n.ParentID,
				Depth:     depth,
				OwnInflow: n.OwnInflow,
				OwnUsed:   n.OwnUsed,
				Inflow:    n.Inflow,
				Used:      n.Used,
				Remaining: n.Remaining,
			})
			walk(n.Children, depth+1)
		}
	}
	walk(roots, 0)
	return out
}

// FindBucketNode searches the forest for a bucket id
func FindBucketNode(roots []*BucketNode, id uint) *BucketNode {
	for _, n := range roots {
		if n.ID == id {
			return n
		}
		if found := FindBucketNode(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}
