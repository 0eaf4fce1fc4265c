package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Param names one engine configuration attribute.
type Param int

const (
	ParamSamplingFrequency Param = iota
	ParamAlpha
	ParamBeta
	ParamSpeed
	ParamHalfTone
	ParamMsdThreshold
	ParamGvWeight
	ParamVolume
	ParamAudioBufferSize
)

var paramNames = map[Param]string{
	ParamSamplingFrequency: "sampling_frequency",
	ParamAlpha:             "alpha",
	ParamBeta:              "beta",
	ParamSpeed:             "speed",
	ParamHalfTone:          "half_tone",
	ParamMsdThreshold:      "msd_threshold",
	ParamGvWeight:          "gv_weight",
	ParamVolume:            "volume",
	ParamAudioBufferSize:   "audio_buffer_size",
}

func (p Param) String() string {
	if name, ok := paramNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Param(%d)", int(p))
}

// Indexed reports whether the parameter addresses a per-stream slot.
func (p Param) Indexed() bool {
	return p == ParamMsdThreshold || p == ParamGvWeight
}

// Setting is one configure call. Index is used only by indexed parameters.
type Setting struct {
	Param Param
	Index int
	Value float64
}

func (s Setting) String() string {
	if s.Param.Indexed() {
		return fmt.Sprintf("%s[%d]=%g", s.Param, s.Index, s.Value)
	}
	return fmt.Sprintf("%s=%g", s.Param, s.Value)
}

// ParseSetting parses "name=value" or "name[index]=value".
func ParseSetting(s string) (Setting, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return Setting{}, fmt.Errorf("setting %q: expected name=value", s)
	}
	key = strings.TrimSpace(key)

	index := 0
	if open := strings.IndexByte(key, '['); open >= 0 {
		if !strings.HasSuffix(key, "]") {
			return Setting{}, fmt.Errorf("setting %q: unterminated index", s)
		}
		n, err := strconv.Atoi(key[open+1 : len(key)-1])
		if err != nil {
			return Setting{}, fmt.Errorf("setting %q: bad index: %w", s, err)
		}
		index = n
		key = key[:open]
	}

	var param Param
	found := false
	for p, name := range paramNames {
		if name == key {
			param, found = p, true
			break
		}
	}
	if !found {
		return Setting{}, fmt.Errorf("setting %q: unknown parameter %q", s, key)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Setting{}, fmt.Errorf("setting %q: bad value: %w", s, err)
	}
	return Setting{Param: param, Index: index, Value: value}, nil
}

// Configuration is the full parameter set of a session. Unset fields leave
// the engine's own defaults in place.
type Configuration struct {
	SamplingFrequency int             `yaml:"sampling_frequency,omitempty" json:"sampling_frequency,omitempty"`
	Alpha             *float64        `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Beta              *float64        `yaml:"beta,omitempty" json:"beta,omitempty"`
	Speed             *float64        `yaml:"speed,omitempty" json:"speed,omitempty"`
	HalfTone          *float64        `yaml:"half_tone,omitempty" json:"half_tone,omitempty"`
	MsdThreshold      map[int]float64 `yaml:"msd_threshold,omitempty" json:"msd_threshold,omitempty"`
	GvWeight          map[int]float64 `yaml:"gv_weight,omitempty" json:"gv_weight,omitempty"`
	Volume            *float64        `yaml:"volume,omitempty" json:"volume,omitempty"`
	AudioBufferSize   int             `yaml:"audio_buffer_size,omitempty" json:"audio_buffer_size,omitempty"`
}

// Overlay returns c with every field set in o taking precedence.
func (c Configuration) Overlay(o Configuration) Configuration {
	out := c
	if o.SamplingFrequency != 0 {
		out.SamplingFrequency = o.SamplingFrequency
	}
	if o.Alpha != nil {
		out.Alpha = o.Alpha
	}
	if o.Beta != nil {
		out.Beta = o.Beta
	}
	if o.Speed != nil {
		out.Speed = o.Speed
	}
	if o.HalfTone != nil {
		out.HalfTone = o.HalfTone
	}
	if o.Volume != nil {
		out.Volume = o.Volume
	}
	if o.AudioBufferSize != 0 {
		out.AudioBufferSize = o.AudioBufferSize
	}
	out.MsdThreshold = mergeIndexed(c.MsdThreshold, o.MsdThreshold)
	out.GvWeight = mergeIndexed(c.GvWeight, o.GvWeight)
	return out
}

// With applies individual settings on top of c.
func (c Configuration) With(settings ...Setting) Configuration {
	out := c.Overlay(Configuration{})
	for _, s := range settings {
		v := s.Value
		switch s.Param {
		case ParamSamplingFrequency:
			out.SamplingFrequency = int(v)
		case ParamAlpha:
			out.Alpha = &v
		case ParamBeta:
			out.Beta = &v
		case ParamSpeed:
			out.Speed = &v
		case ParamHalfTone:
			out.HalfTone = &v
		case ParamMsdThreshold:
			out.MsdThreshold = mergeIndexed(out.MsdThreshold, map[int]float64{s.Index: v})
		case ParamGvWeight:
			out.GvWeight = mergeIndexed(out.GvWeight, map[int]float64{s.Index: v})
		case ParamVolume:
			out.Volume = &v
		case ParamAudioBufferSize:
			out.AudioBufferSize = int(v)
		}
	}
	return out
}

// Settings renders the configuration as an ordered list of configure calls.
func (c Configuration) Settings() []Setting {
	var out []Setting
	if c.SamplingFrequency != 0 {
		out = append(out, Setting{Param: ParamSamplingFrequency, Value: float64(c.SamplingFrequency)})
	}
	if c.Alpha != nil {
		out = append(out, Setting{Param: ParamAlpha, Value: *c.Alpha})
	}
	if c.Beta != nil {
		out = append(out, Setting{Param: ParamBeta, Value: *c.Beta})
	}
	if c.Speed != nil {
		out = append(out, Setting{Param: ParamSpeed, Value: *c.Speed})
	}
	if c.HalfTone != nil {
		out = append(out, Setting{Param: ParamHalfTone, Value: *c.HalfTone})
	}
	out = appendIndexed(out, ParamMsdThreshold, c.MsdThreshold)
	out = appendIndexed(out, ParamGvWeight, c.GvWeight)
	if c.Volume != nil {
		out = append(out, Setting{Param: ParamVolume, Value: *c.Volume})
	}
	if c.AudioBufferSize != 0 {
		out = append(out, Setting{Param: ParamAudioBufferSize, Value: float64(c.AudioBufferSize)})
	}
	return out
}

func appendIndexed(out []Setting, p Param, values map[int]float64) []Setting {
	indexes := make([]int, 0, len(values))
	for i := range values {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		out = append(out, Setting{Param: p, Index: i, Value: values[i]})
	}
	return out
}

func mergeIndexed(a, b map[int]float64) map[int]float64 {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[int]float64, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Float is a convenience for building optional Configuration fields.
func Float(v float64) *float64 {
	return &v
}
