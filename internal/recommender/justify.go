package recommender

import (
	"fmt"
	"strings"

	"github.com/dshills/patternfinder-mcp/internal/keyword"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// maxListed caps copied benefits, drawbacks and use cases
const maxListed = 3

func firstN(items []string, n int) []string {
	if len(items) == 0 {
		return nil
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// justify builds a reproducible explanation from pattern metadata and the
// dominant signal
func justify(p *types.Pattern, cs types.CandidateScore, signal types.Signal, km keyword.Match, language string, degraded bool) types.Justification {
	j := types.Justification{
		Signal:    signal,
		Benefits:  firstN(p.Benefits, maxListed),
		Drawbacks: firstN(p.Drawbacks, maxListed),
	}

	switch signal {
	case types.SignalSemantic:
		j.PrimaryReason = fmt.Sprintf("%s (%s) is semantically close to the problem description (similarity %.2f)",
			p.Name, p.Category, cs.Semantic)
	case types.SignalKeyword:
		j.PrimaryReason = fmt.Sprintf("%s (%s) matches key terms of the problem description: %s",
			p.Name, p.Category, strings.Join(km.MatchedTerms, ", "))
	default:
		j.PrimaryReason = fmt.Sprintf("%s (%s) matches both the meaning and the key terms of the problem description",
			p.Name, p.Category)
	}

	if degraded {
		j.SupportingReasons = append(j.SupportingReasons, "semantic search unavailable; ranked on keyword match only")
	}
	if len(km.Fields) > 0 && signal != types.SignalKeyword {
		j.SupportingReasons = append(j.SupportingReasons,
			fmt.Sprintf("query terms found in %s: %s", joinFields(km.Fields), strings.Join(km.MatchedTerms, ", ")))
	} else if len(km.Fields) > 0 {
		j.SupportingReasons = append(j.SupportingReasons, fmt.Sprintf("query terms found in %s", joinFields(km.Fields)))
	}
	if uses := firstN(p.UseCases, maxListed); len(uses) > 0 {
		j.SupportingReasons = append(j.SupportingReasons, "commonly used for: "+strings.Join(uses, "; "))
	}
	if p.Complexity != "" {
		j.SupportingReasons = append(j.SupportingReasons, fmt.Sprintf("%s implementation complexity", p.Complexity))
	}
	if language != "" && p.HasLanguage(language) {
		j.SupportingReasons = append(j.SupportingReasons, fmt.Sprintf("idiomatic in %s", language))
	}

	return j
}

func joinFields(fields []keyword.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ReplaceAll(string(f), "_", " ")
	}
	return strings.Join(names, ", ")
}

// alternativesFor returns the first n candidates below the cutoff in rank order
func alternativesFor(p *types.Pattern, below []types.CandidateScore, patterns map[string]*types.Pattern, n int) []types.Alternative {
	if n <= 0 || len(below) == 0 {
		return nil
	}

	out := make([]types.Alternative, 0, n)
	for _, cs := range below {
		if len(out) == n {
			break
		}
		alt := patterns[cs.PatternID]
		if alt == nil || alt.ID == p.ID {
			continue
		}
		reason := fmt.Sprintf("next best match, %s pattern (score %.2f)", alt.Category, cs.Final)
		if strings.EqualFold(alt.Category, p.Category) {
			reason = fmt.Sprintf("next best match, also %s (score %.2f)", alt.Category, cs.Final)
		}
		out = append(out, types.Alternative{
			PatternID: alt.ID,
			Name:      alt.Name,
			Score:     cs.Final,
			Reason:    reason,
		})
	}
	return out
}
