package constants

const (
	APIName = "COMPLIANCE_HUB"

	DefaultConfigPath1 = "/etc/compliance-hub"
	DefaultConfigPath2 = "$HOME/.compliance-hub"
)

const (
	DefaultTop  = 20
	DefaultSkip = 0
)
