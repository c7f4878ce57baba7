package metrics

import "strings"

// namespace prefixes every collector exported by the service.
const namespace = "billing_user"

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
