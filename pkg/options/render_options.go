package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*RenderOptions)(nil)

// RenderOptions controls how results are turned into markup and tables.
type RenderOptions struct {
	// Escape HTML-escapes device text before it reaches the page.
	Escape bool `json:"escape" mapstructure:"escape"`

	// MaxColWidth bounds the value column of terminal tables.
	MaxColWidth uint `json:"max-col-width" mapstructure:"max-col-width"`
}

// NewRenderOptions creates a RenderOptions object with default parameters.
func NewRenderOptions() *RenderOptions {
	return &RenderOptions{
		Escape:      true,
		MaxColWidth: 80,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *RenderOptions) Validate() []error {
	return nil
}

// AddFlags adds flags for RenderOptions to the specified FlagSet.
func (o *RenderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Escape, "render.escape", o.Escape, "HTML-escape text received from the camera.")
	fs.UintVar(&o.MaxColWidth, "render.max-col-width", o.MaxColWidth, "Maximum width of the value column in terminal tables.")
}
