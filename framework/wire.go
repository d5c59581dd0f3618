package framework

import "github.com/manningwu07/storyforge/params"

// Request and response bodies shared by the HTTP and Redis transports.

type trainRequest struct {
	params.TrainingConfig
	ResumeFrom string `json:"resume_from_checkpoint,omitempty"`
}

type saveRequest struct {
	OutputDir string `json:"output_dir"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Device string `json:"device,omitempty"`
	IDs    []int  `json:"ids"`
	GenerateParams
}

type generateResponse struct {
	IDs []int `json:"ids"`
}
