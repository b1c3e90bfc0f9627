// Copyright 2024 Kelvin Clement Mwinuka
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package buffer

import (
	"fmt"
	"math"
	"time"
)

// TransformSize is the encoded size of a Transform: ten float32 values.
const TransformSize = 40

// TimespanSize is the encoded size of a Timespan.
const TimespanSize = 8

type Vector struct {
	X float32 `json:"X" yaml:"X"`
	Y float32 `json:"Y" yaml:"Y"`
	Z float32 `json:"Z" yaml:"Z"`
}

type Quat struct {
	X float32 `json:"X" yaml:"X"`
	Y float32 `json:"Y" yaml:"Y"`
	Z float32 `json:"Z" yaml:"Z"`
	W float32 `json:"W" yaml:"W"`
}

// Transform is a position and orientation in the world. It is encoded as
// rotation (X, Y, Z, W), translation (X, Y, Z) and scale (X, Y, Z).
type Transform struct {
	Rotation    Quat   `json:"Rotation" yaml:"Rotation"`
	Translation Vector `json:"Translation" yaml:"Translation"`
	Scale       Vector `json:"Scale3D" yaml:"Scale3D"`
}

func (t Transform) floats() [10]float32 {
	return [10]float32{
		t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W,
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		t.Scale.X, t.Scale.Y, t.Scale.Z,
	}
}

func (b *Buffer) WriteTransform(t Transform) error {
	if err := b.reserve("write transform", TransformSize); err != nil {
		return err
	}
	for _, f := range t.floats() {
		_ = b.WriteFloat32(f)
	}
	return nil
}

func (b *Buffer) ReadTransform() (Transform, error) {
	if b.Unread() < TransformSize {
		return Transform{}, &TruncatedReadError{Op: "read transform", Need: TransformSize, Unread: b.Unread()}
	}
	var f [10]float32
	for i := range f {
		f[i], _ = b.ReadFloat32()
	}
	return Transform{
		Rotation:    Quat{X: f[0], Y: f[1], Z: f[2], W: f[3]},
		Translation: Vector{X: f[4], Y: f[5], Z: f[6]},
		Scale:       Vector{X: f[7], Y: f[8], Z: f[9]},
	}, nil
}

// WriteTransforms writes a count followed by each record. Nothing is written
// unless the whole sequence fits.
func (b *Buffer) WriteTransforms(ts []Transform) error {
	if len(ts) > CountMask {
		return ErrCountTooLarge
	}
	if err := b.reserve("write transforms", varIntLen(uint64(len(ts)))+len(ts)*TransformSize); err != nil {
		return err
	}
	_ = b.WriteCount(len(ts))
	for _, t := range ts {
		_ = b.WriteTransform(t)
	}
	return nil
}

// ReadTransforms reads a masked count and then exactly that many records.
func (b *Buffer) ReadTransforms() ([]Transform, error) {
	start := b.rpos
	count, err := b.ReadCount()
	if err != nil {
		return nil, err
	}
	if count*TransformSize > b.Unread() {
		unread := b.Unread()
		b.rpos = start
		return nil, &TruncatedReadError{Op: "read transforms", Need: count * TransformSize, Unread: unread}
	}
	ts := make([]Transform, count)
	for i := range ts {
		ts[i], _ = b.ReadTransform()
	}
	return ts, nil
}

// Timespan is a signed duration counted in 100 nanosecond ticks.
type Timespan int64

const (
	TicksPerMillisecond int64 = 10_000
	TicksPerSecond            = TicksPerMillisecond * 1000
	TicksPerMinute            = TicksPerSecond * 60
	TicksPerHour              = TicksPerMinute * 60
	TicksPerDay               = TicksPerHour * 24
)

func TimespanOf(d time.Duration) Timespan {
	return Timespan(d / 100)
}

// Duration saturates at the time.Duration range; the accessors below work on
// the tick count directly and cover the full int64 range.
func (t Timespan) Duration() time.Duration {
	const limit = Timespan(math.MaxInt64 / 100)
	switch {
	case t > limit:
		return time.Duration(math.MaxInt64)
	case t < -limit:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(t) * 100
}

func (t Timespan) Days() int { return int(int64(t) / TicksPerDay) }

func (t Timespan) Hours() int { return int(int64(t) / TicksPerHour % 24) }

func (t Timespan) Minutes() int { return int(int64(t) / TicksPerMinute % 60) }

func (t Timespan) Seconds() int { return int(int64(t) / TicksPerSecond % 60) }

func (t Timespan) Milliseconds() int { return int(int64(t) / TicksPerMillisecond % 1000) }

// String renders minutes:seconds:centiseconds.
func (t Timespan) String() string {
	return fmt.Sprintf("%d:%d:%d", t.Minutes(), t.Seconds(), t.Milliseconds()/10)
}

func (b *Buffer) WriteTimespan(t Timespan) error {
	if err := b.reserve("write timespan", TimespanSize); err != nil {
		return err
	}
	return b.WriteInt64(int64(t))
}

func (b *Buffer) ReadTimespan() (Timespan, error) {
	if b.Unread() < TimespanSize {
		return 0, &TruncatedReadError{Op: "read timespan", Need: TimespanSize, Unread: b.Unread()}
	}
	v, err := b.ReadInt64()
	return Timespan(v), err
}
