package node

import (
	"time"

	"github.com/terabiome/stackbuilder/internal/extractor"
	"github.com/terabiome/stackbuilder/pkg/constants"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseDeploying    Phase = "deploying"
	PhaseDeployed     Phase = "deployed"
	PhaseFailed       Phase = "failed"
	PhaseUninstalling Phase = "uninstalling"
)

// Status is a point-in-time view of a node.
type Status struct {
	ID        string             `json:"id" yaml:"id"`
	Name      string             `json:"name,omitempty" yaml:"name,omitempty"`
	Kind      constants.NodeKind `json:"kind" yaml:"kind"`
	Phase     Phase              `json:"phase" yaml:"phase"`
	Result    extractor.Result   `json:"result" yaml:"result"`
	LastError string             `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt" yaml:"updatedAt"`
}
