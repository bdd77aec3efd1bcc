package game

// ResourceKind identifies a collectible resource type.
type ResourceKind string

const (
	ResourceCoal ResourceKind = "COAL"
	ResourceGas  ResourceKind = "GAS"
	ResourceOil  ResourceKind = "OIL"
	ResourceGold ResourceKind = "GOLD"
)

// resourceInfo fixes the score value and spawn weight of a resource kind.
// Weights are percentages of resource-bearing tiles and must sum to 100.
type resourceInfo struct {
	points int
	weight int
}

var resourceCatalog = map[ResourceKind]resourceInfo{
	ResourceCoal: {points: 1, weight: 40},
	ResourceGas:  {points: 2, weight: 30},
	ResourceOil:  {points: 3, weight: 20},
	ResourceGold: {points: 10, weight: 10},
}

// resourceOrder fixes the iteration order for weighted draws so generation is
// deterministic for a given random source.
var resourceOrder = []ResourceKind{ResourceCoal, ResourceGas, ResourceOil, ResourceGold}

// Kinds returns all resource kinds in their canonical order.
func Kinds() []ResourceKind {
	kinds := make([]ResourceKind, len(resourceOrder))
	copy(kinds, resourceOrder)
	return kinds
}

// Points returns the score awarded for collecting this kind.
func (k ResourceKind) Points() int {
	return resourceCatalog[k].points
}

// Weight returns the spawn weight (percent) of this kind.
func (k ResourceKind) Weight() int {
	return resourceCatalog[k].weight
}

// pickResource maps a roll in [0,100) onto a resource kind by walking the
// catalog weights in canonical order.
func pickResource(roll int) ResourceKind {
	acc := 0
	for _, kind := range resourceOrder {
		acc += resourceCatalog[kind].weight
		if roll < acc {
			return kind
		}
	}
	// Unreachable while weights sum to 100.
	return resourceOrder[len(resourceOrder)-1]
}

func totalResourceWeight() int {
	total := 0
	for _, info := range resourceCatalog {
		total += info.weight
	}
	return total
}
