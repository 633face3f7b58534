package constants

type NodeKind string

const (
	KIND_FEDERATED_CATALOGUE  NodeKind = "federated-catalogue"
	KIND_ORCHESTRATION_ENGINE NodeKind = "orchestration-engine"
)

const (
	RealmAdmin   = "master"
	RealmService = "gaia-x"

	AdminClientID            = "admin-cli"
	DefaultCatalogueClientID = "federated-catalogue"
)

const (
	InstallScript   = "deploy.sh"
	UninstallScript = "uninstall.sh"
)

const (
	TemplateTokenURL   = "token-url"
	TemplateServiceURL = "service-url"

	DefaultTokenURLTemplate   = "https://{{.Domain}}/{{.Path}}/key-server/realms/{{.Realm}}/protocol/openid-connect/token"
	DefaultServiceURLTemplate = "https://{{.Domain}}/{{.Path}}/fcservice"
)
