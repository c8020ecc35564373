package main

import "github.com/cuken/overseer/pkg/types"

type InitResponse struct {
	Message      string            `json:"message"`
	Path         string            `json:"path"`
	Directories  map[string]string `json:"directories"`
	Instructions []string          `json:"instructions"`
}

type TaskAddResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location string `json:"location"`
	Mode     string `json:"mode"`
}

type StatusResponse struct {
	Pending []*types.Task `json:"pending,omitempty"`
	Running []*types.Task `json:"running,omitempty"`
}

type TaskListResponse struct {
	Pending   []*types.Task `json:"pending,omitempty"`
	Running   []*types.Task `json:"running,omitempty"`
	Completed []*types.Task `json:"completed,omitempty"`
	Failed    []*types.Task `json:"failed,omitempty"`
}
