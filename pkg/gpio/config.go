// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package gpio

import "github.com/warthog618/go-gpiocdev"

// Option configures a line request.
type Option interface {
	apply(*requestConfig)
}

type requestConfig struct {
	opts []gpiocdev.LineReqOption
}

type rawOption struct {
	opt gpiocdev.LineReqOption
}

func (o rawOption) apply(c *requestConfig) {
	c.opts = append(c.opts, o.opt)
}

// AsInput requests the line as an input. Every line the node manager
// touches is an input; actuation happens through hwmon and the
// management bus, never GPIO.
func AsInput() Option {
	return rawOption{opt: gpiocdev.AsInput}
}

// AsActiveLow inverts the line's logical level.
func AsActiveLow() Option {
	return rawOption{opt: gpiocdev.AsActiveLow}
}

// WithPullUp enables the internal pull-up resistor.
func WithPullUp() Option {
	return rawOption{opt: gpiocdev.WithPullUp}
}

// WithPullDown enables the internal pull-down resistor.
func WithPullDown() Option {
	return rawOption{opt: gpiocdev.WithPullDown}
}

// WithConsumer overrides the consumer label recorded against the line.
func WithConsumer(name string) Option {
	return rawOption{opt: gpiocdev.WithConsumer(name)}
}

func convertOptions(opts []Option) []gpiocdev.LineReqOption {
	var c requestConfig
	for _, opt := range opts {
		opt.apply(&c)
	}
	return c.opts
}
