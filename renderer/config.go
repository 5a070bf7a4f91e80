package renderer

import (
	"encoding/json"
	"fmt"
	"os"
)

// RendererConfig is the single parameter block every pass reads its
// tunables from. It lives in one dirty-tracked uniform buffer owned by
// the Renderer; passes reference that buffer in their bind groups.
//
// Struct Config {
//   ssao_radius: f32;            -- 4
//   ssao_bias: f32;              -- 8
//   ssao_power: f32;             -- 12
//   ambient_factor: f32;         -- 16
//   shadow_min_variance: f32;    -- 20
//   shadow_bleed_reduction: f32; -- 24
//   exposure: f32;               -- 28
//   gamma: f32;                  -- 32
// }
type RendererConfig struct {
	SsaoRadius           float32 `json:"ssaoRadius"`
	SsaoBias             float32 `json:"ssaoBias"`
	SsaoPower            float32 `json:"ssaoPower"`
	AmbientFactor        float32 `json:"ambientFactor"`
	ShadowMinVariance    float32 `json:"shadowMinVariance"`
	ShadowBleedReduction float32 `json:"shadowBleedReduction"`
	Exposure             float32 `json:"exposure"`
	Gamma                float32 `json:"gamma"`
}

func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		SsaoRadius:           0.3,
		SsaoBias:             0.03,
		SsaoPower:            1.0,
		AmbientFactor:        0.1,
		ShadowMinVariance:    1e-4,
		ShadowBleedReduction: 0.3,
		Exposure:             1.0,
		Gamma:                2.2,
	}
}

// SaveConfigProfile writes a config profile as indented JSON.
func SaveConfigProfile(path string, config RendererConfig) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// LoadConfigProfile reads a profile saved by SaveConfigProfile.
func LoadConfigProfile(path string) (RendererConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RendererConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var config RendererConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return RendererConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, nil
}
