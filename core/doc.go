// Package core contains the canonical forms domain model, contracts, and the
// submission pipeline. Lower-level adapters (transport, stores, notification
// delivery) depend on this package; core must not depend on them.
package core
