package envguard

import "strings"

// secretSuffixes heuristically mark a variable name as credential material.
var secretSuffixes = []string{
	"_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_PRIVATE_KEY",
	"_CREDENTIALS",
}

// integrationPrefixes name variables owned by the platform's integration
// subsystem. They are deliberately excluded from the secret class here
// because that subsystem manages their placement itself; they are equally
// excluded from preview-default synthesis.
var integrationPrefixes = []string{
	"SUPABASE_",
	"STRIPE_",
}

// publicPrefixes are never secret-like regardless of suffix; they are
// compiled into client bundles by the framework and are public by contract.
var publicPrefixes = []string{
	"NEXT_PUBLIC_",
}

// Classify reports whether a variable name looks like credential material.
// Classification is computed fresh per run and never cached; the rules here
// are expected to evolve.
func Classify(name string) bool {
	upper := strings.ToUpper(name)

	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return false
		}
	}
	for _, prefix := range integrationPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return false
		}
	}
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// IsIntegrationManaged reports whether the variable belongs to a third-party
// integration subsystem.
func IsIntegrationManaged(name string) bool {
	upper := strings.ToUpper(name)
	for _, prefix := range integrationPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// IsServiceRole reports whether the variable carries service-role-equivalent
// credentials; those may only ever reach the workers lane.
func IsServiceRole(name string) bool {
	return strings.Contains(strings.ToUpper(name), "SERVICE_ROLE")
}
