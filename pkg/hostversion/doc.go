// SPDX-License-Identifier: MPL-2.0

// Package hostversion models host and library versions as semantic versions and
// closed version ranges. Comparisons delegate to golang.org/x/mod/semver; inputs
// may omit the "v" prefix and trailing components ("1.19" is "1.19.0").
package hostversion
