package metrics

import (
	"bytes"

	"github.com/goccy/go-json"
)

// ResourceGroup holds the resources of one initiator type in input order
type ResourceGroup struct {
	Type      string
	Resources []ResourceTiming
}

// ResourceGroups is an ordered mapping from type to resources. Groups appear
// in the order their type was first seen.
type ResourceGroups []ResourceGroup

// Get returns the resources of the given type
func (g ResourceGroups) Get(resourceType string) []ResourceTiming {
	for _, group := range g {
		if group.Type == resourceType {
			return group.Resources
		}
	}
	return nil
}

// Types returns the group keys in order
func (g ResourceGroups) Types() []string {
	types := make([]string, 0, len(g))
	for _, group := range g {
		types = append(types, group.Type)
	}
	return types
}

// MarshalJSON encodes the groups as a JSON object keeping group order
func (g ResourceGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, group := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(group.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		resources := group.Resources
		if resources == nil {
			resources = []ResourceTiming{}
		}
		value, err := json.Marshal(resources)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ResourceAnalysis aggregates the resource timings of a page load
type ResourceAnalysis struct {
	Total   int             `json:"total"`
	ByType  ResourceGroups  `json:"byType"`
	Slowest *ResourceTiming `json:"slowest"`
	Largest *ResourceTiming `json:"largest"`
}

// AnalyzeResources groups resources by type and finds the slowest and the
// largest one in a single pass. Maxima use a strict comparison starting from
// zero, so the earliest resource wins a tie and zero values never qualify.
func AnalyzeResources(resources []ResourceTiming) ResourceAnalysis {
	analysis := ResourceAnalysis{
		Total:  len(resources),
		ByType: ResourceGroups{},
	}

	index := make(map[string]int)
	var slowestTime float64
	var largestSize int64

	for _, resource := range resources {
		i, ok := index[resource.Type]
		if !ok {
			i = len(analysis.ByType)
			index[resource.Type] = i
			analysis.ByType = append(analysis.ByType, ResourceGroup{Type: resource.Type})
		}
		analysis.ByType[i].Resources = append(analysis.ByType[i].Resources, resource)

		if resource.Duration > slowestTime {
			slowestTime = resource.Duration
			slowest := resource
			analysis.Slowest = &slowest
		}

		if resource.Size > largestSize {
			largestSize = resource.Size
			largest := resource
			analysis.Largest = &largest
		}
	}

	return analysis
}
