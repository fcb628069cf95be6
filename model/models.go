// Package model holds the records served to the dashboard. Records are
// rebuilt on every request and never mutated after they are returned.
package model

import (
	coreV1 "k8s.io/api/core/v1"
)

// Cluster is a kubeconfig context.
type Cluster struct {
	Name        string `json:"name"`
	Context     string `json:"context"`
	Server      string `json:"server"`
	DisplayName string `json:"displayName"`
	IsActive    bool   `json:"isActive"`
}

// Resources carries canonical values together with their display strings.
type Resources struct {
	CPUCores float64 `json:"cpuCores"`
	MemBytes float64 `json:"memBytes"`
	CPU      string  `json:"cpu"`
	Memory   string  `json:"memory"`
}

type Node struct {
	Name         string            `json:"name"`
	InstanceType string            `json:"instanceType"`
	Tags         map[string]string `json:"tags"`
	Capacity     Resources         `json:"capacity"`
	Allocatable  Resources         `json:"allocatable"`
	Usage        Resources         `json:"usage"`
	Pods         int               `json:"pods"`
}

type NodeGroup struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`

	TotalCPUCores float64 `json:"totalCpuCores"`
	UsedCPUCores  float64 `json:"usedCpuCores"`
	TotalMemBytes float64 `json:"totalMemBytes"`
	UsedMemBytes  float64 `json:"usedMemBytes"`

	TotalCPU    string `json:"totalCpu"`
	UsedCPU     string `json:"usedCpu"`
	TotalMemory string `json:"totalMemory"`
	UsedMemory  string `json:"usedMemory"`

	PodsCount     int `json:"podsCount"`
	CPUPercentage int `json:"cpuPercentage"`
	MemPercentage int `json:"memPercentage"`
}

// Pod is a display record. HelmChart and HelmVersion are omitted rather
// than empty when a pod carries no Helm metadata.
type Pod struct {
	Name          string  `json:"name"`
	Namespace     string  `json:"namespace"`
	Status        string  `json:"status"`
	HelmChart     string  `json:"helmChart,omitempty"`
	HelmVersion   string  `json:"helmVersion,omitempty"`
	CPUUsageCores float64 `json:"cpuUsageCores"`
	MemUsageBytes float64 `json:"memUsageBytes"`
	CPUUsage      string  `json:"cpuUsage"`
	MemoryUsage   string  `json:"memoryUsage"`
	NodeName      string  `json:"nodeName"`
	Age           string  `json:"age"`
}

// DeleteResult is the outcome of a pod deletion.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// StatusCode is the HTTP status that best describes the outcome.
	StatusCode int `json:"-"`
}

type LogsResult struct {
	Success bool   `json:"success"`
	Logs    string `json:"logs,omitempty"`
	Message string `json:"message,omitempty"`

	StatusCode int `json:"-"`
}

type DetailsResult struct {
	Success bool        `json:"success"`
	Details *coreV1.Pod `json:"details,omitempty"`
	Message string      `json:"message,omitempty"`

	StatusCode int `json:"-"`
}
