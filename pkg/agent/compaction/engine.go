package compaction

import (
	"fmt"

	"github.com/fpt/go-kaizen-cli/pkg/logger"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

var log = logger.NewComponentLogger("compaction")

type reduceFunc func([]message.Message, Config, string) ([]message.Message, string)

func strategyFor(s Strategy) reduceFunc {
	switch s {
	case StrategySlidingWindow:
		return applySlidingWindow
	case StrategyImportance:
		return applyImportance
	default:
		return applySummary
	}
}

// Compress applies the configured strategy to a conversation when usage has
// reached the trigger threshold. The input slice is never mutated; when
// Compressed is true the caller swaps in CompressedMessages.
//
// The config must have passed Validate. Compression never grows the
// conversation: a strategy whose output estimates larger than its input is
// discarded, the original messages are kept and Compressed is false.
func Compress(messages []message.Message, cfg Config, modelName string) Result {
	if !cfg.Enabled {
		return Result{Message: "compression disabled"}
	}
	if len(messages) == 0 {
		return Result{Message: "conversation is empty; nothing to compress"}
	}

	before := CalculateUsage(messages, modelName)
	if before.UsagePercentage < cfg.Threshold {
		return Result{
			OriginalTokenCount:   before.TotalTokens,
			CompressedTokenCount: before.TotalTokens,
			Message: fmt.Sprintf("context at %d%%, below %d%% compression threshold",
				before.UsagePercentage, cfg.Threshold),
		}
	}

	log.DebugWithIcon("🗜️", "Compression triggered",
		"strategy", string(cfg.Strategy),
		"usage_pct", before.UsagePercentage,
		"total_tokens", before.TotalTokens)

	strategy := cfg.Strategy
	reduced, summary := strategyFor(strategy)(messages, cfg, modelName)
	after := CalculateUsage(reduced, modelName)

	if after.TotalTokens > before.TotalTokens {
		log.Warn("Strategy output larger than input, keeping original messages",
			"strategy", string(strategy),
			"before_tokens", before.TotalTokens,
			"after_tokens", after.TotalTokens)
		return Result{
			Strategy:             strategy,
			OriginalTokenCount:   before.TotalTokens,
			CompressedTokenCount: before.TotalTokens,
			Message:              "compression would grow the context; keeping original messages",
		}
	}
	if after.TotalTokens == before.TotalTokens && len(reduced) == len(messages) {
		return Result{
			Strategy:             strategy,
			OriginalTokenCount:   before.TotalTokens,
			CompressedTokenCount: before.TotalTokens,
			Message:              "nothing can be removed within current preservation constraints",
		}
	}

	reduction := 0
	if before.TotalTokens > 0 {
		reduction = percentOf(before.TotalTokens-after.TotalTokens, before.TotalTokens)
	}
	if reduction < 0 {
		reduction = 0
	}

	log.InfoWithIcon("🗜️", "Context compressed",
		"strategy", string(strategy),
		"before_tokens", before.TotalTokens,
		"after_tokens", after.TotalTokens,
		"reduction_pct", reduction)

	return Result{
		Compressed:           true,
		Strategy:             strategy,
		OriginalTokenCount:   before.TotalTokens,
		CompressedTokenCount: after.TotalTokens,
		ReductionPercentage:  reduction,
		Summary:              summary,
		Message: fmt.Sprintf("compressed context from %d to %d tokens (%d%% reduction) using %s strategy",
			before.TotalTokens, after.TotalTokens, reduction, strategy),
		CompressedMessages: reduced,
	}
}
