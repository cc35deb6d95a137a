package common

var (
	// PackageName is used as the metrics namespace and the default log service tag.
	PackageName = "contactpage"

	// Version is set at build time via -ldflags "-X github.com/ruteri/lambda-contact-page/common.Version=..."
	Version = "dev"
)
