// SPDX-License-Identifier: MPL-2.0

// Package bootstrap drives plugin startup through a strictly sequential state
// machine:
//
//	Uninitialized -> ProbingHost -> AdapterResolved -> ManifestLoaded -> Provisioning -> Ready
//
// Failed is terminal and reachable from every non-terminal state. Gameplay
// subsystems may only initialize once Ready has been reached, and they receive
// the adapter handle and isolation boundary through the returned Runtime.
package bootstrap
