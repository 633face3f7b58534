package adapter

import (
	"github.com/terabiome/stackbuilder/internal/api"
	"github.com/terabiome/stackbuilder/internal/config"
	"github.com/terabiome/stackbuilder/internal/extractor"
	"github.com/terabiome/stackbuilder/internal/node"
)

func AdaptInput(req api.InputRequest) node.Message {
	return node.Message{
		Topic:        req.Topic,
		Method:       req.Method,
		Payload:      req.Payload,
		ClientSecret: req.ClientSecret,
		Username:     req.Username,
		Password:     req.Password,
	}
}

func AdaptInfo(r extractor.Result) api.InfoResponse {
	return api.InfoResponse{
		IngressExternalIP: r.IngressExternalIP,
		FCServiceURL:      r.FCServiceURL,
		KeycloakURL:       r.KeycloakURL,
		ClientSecret:      r.ClientSecret,
	}
}

func AdaptStatus(n *node.Node) api.NodeStatus {
	status := n.Status()
	return api.NodeStatus{
		ID:                   status.ID,
		Name:                 status.Name,
		Kind:                 string(status.Kind),
		Phase:                string(status.Phase),
		SupportsServiceCalls: n.SupportsServiceCalls(),
		Result:               AdaptInfo(status.Result),
		LastError:            status.LastError,
		UpdatedAt:            status.UpdatedAt,
	}
}

func AdaptStatuses(nodes []*node.Node) []api.NodeStatus {
	statuses := make([]api.NodeStatus, len(nodes))
	for i, n := range nodes {
		statuses[i] = AdaptStatus(n)
	}
	return statuses
}

// AdaptOutput converts a node output. A nil output yields nil.
func AdaptOutput(out *node.Output) *api.OutputResponse {
	if out == nil {
		return nil
	}

	resp := &api.OutputResponse{Topic: out.Topic, Payload: out.Payload}
	if result, ok := out.Payload.(extractor.Result); ok {
		resp.Payload = AdaptInfo(result)
	}
	if out.Response != nil {
		resp.Response = &api.ServiceResponse{
			StatusCode: out.Response.StatusCode,
			Body:       out.Response.Body,
		}
	}
	return resp
}

// AdaptNodeConfig converts a configured node into the node's own settings.
func AdaptNodeConfig(nc config.NodeConfig) node.Config {
	return node.Config{
		ID:                 nc.ID,
		Name:               nc.Name,
		Kind:               nc.Kind,
		KubeConfig:         nc.KubeConfig,
		PrivateKey:         nc.PrivateKey,
		Certificate:        nc.Certificate,
		Domain:             nc.Domain,
		Path:               nc.Instance,
		AdminUser:          nc.AdminUser,
		AdminPassword:      nc.AdminPassword,
		ClientID:           nc.ClientID,
		DefaultUser:        nc.ServiceUser,
		DefaultPassword:    nc.ServicePassword,
		DeploymentType:     nc.DeploymentType,
		DeploymentPathType: nc.DeploymentPathType,
	}
}
