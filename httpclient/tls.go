package httpclient

import "github.com/kbukum/gokiota/security"

// TLSConfig configures the adapter's transport. See security.TLSConfig.
type TLSConfig = security.TLSConfig
