package model

import "time"

// Credential is a secret for an external hosting service, such as the token
// used to import GitHub pull requests. Key names the secret within the service
// ("token").
type Credential struct {
	ID        int64
	Service   string
	Key       string
	Value     string
	UpdatedAt time.Time
}
