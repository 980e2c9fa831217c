// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"

	"github.com/bending/bendboot/pkg/adapter"
	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/platform"
)

// Descriptor declares which adapter serves a platform over a version range.
type Descriptor struct {
	Platform platform.ID
	Range    hostversion.Range
	Adapter  adapter.ID
}

// Validate checks the platform, range and adapter id.
func (d Descriptor) Validate() error {
	if err := d.Platform.Validate(); err != nil {
		return err
	}
	if err := d.Range.Validate(); err != nil {
		return fmt.Errorf("%s/%s: %w", d.Platform, d.Adapter, err)
	}
	if err := d.Adapter.Validate(); err != nil {
		return err
	}
	return nil
}

// String renders "platform [min, max] -> adapter".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s -> %s", d.Platform, d.Range, d.Adapter)
}
