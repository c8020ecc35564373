package llmadapter

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/cuken/overseer/pkg/types"
)

// BedrockConfig configures an Adapter that routes through AWS Bedrock
// instead of the direct Anthropic API.
type BedrockConfig struct {
	Model     string
	Region    string
	MaxTokens int
	RateLimit types.RateLimitConfig
}

// bedrockModelTranslations maps direct-API model names onto Bedrock's
// cross-region inference profile naming.
var bedrockModelTranslations = map[string]string{
	string(anthropic.ModelClaudeSonnet4_5): "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	string(anthropic.ModelClaudeOpus4_5):   "us.anthropic.claude-opus-4-5-20251101-v1:0",
	string(anthropic.ModelClaudeHaiku4_5):  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
}

func translateForBedrock(model string) string {
	if translated, ok := bedrockModelTranslations[model]; ok {
		return translated
	}
	return model
}

// NewBedrockAdapter builds an Adapter backed by AWS Bedrock rather than a
// direct Anthropic API key.
func NewBedrockAdapter(cfg BedrockConfig) (*Adapter, error) {
	ctx := context.Background()

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	client := anthropic.NewClient(bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	return newAdapter(client, translateForBedrock(cfg.Model), cfg.MaxTokens, cfg.RateLimit), nil
}
