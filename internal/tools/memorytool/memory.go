package memorytool

import (
	"context"
	"time"

	"trusio/internal/domain/memory"
	"trusio/internal/tools"
	"trusio/pkg/errors"
)

// Category under which the memory tool set is listed.
const Category = "memory"

// RegisterAll adds the memory tool set to the registry.
func RegisterAll(registry *tools.Registry, svc *memory.Service) error {
	set := []tools.Tool{
		newStorePreference(svc),
		newStoreInsight(svc),
		newGetMemoryProfile(svc),
		newGetRecommendations(svc),
	}
	for _, tool := range set {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func callMetadata(ctx context.Context) (tools.Metadata, error) {
	meta, ok := tools.MetadataFromContext(ctx)
	if !ok || meta.UserID == "" {
		return tools.Metadata{}, errors.NewValidationError("userId", "user id missing from call context", nil)
	}
	return meta, nil
}

func newStorePreference(svc *memory.Service) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "store_preference",
		Description: "Persist a user preference; the same key overwrites the previous value",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "key", Type: tools.ParamString, Required: true, Description: "Preference key"},
			{Name: "value", Type: tools.ParamString, Required: true, Description: "Preference value"},
			{Name: "category", Type: tools.ParamString, Description: "Grouping category"},
			{Name: "confidence", Type: tools.ParamNumber, Rule: "gte=0,lte=1", Description: "Confidence in [0,1]"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		meta, err := callMetadata(ctx)
		if err != nil {
			return nil, err
		}
		key, _ := params["key"].(string)
		value, _ := params["value"].(string)
		category, _ := params["category"].(string)
		confidence, ok := tools.Number(params, "confidence")
		if !ok {
			confidence = 1.0
		}

		if err := svc.StorePreference(ctx, meta.UserID, key, value, category, confidence); err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"stored": true,
			"key":    key,
		}, nil
	})
}

func newStoreInsight(svc *memory.Service) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "store_insight",
		Description: "Append an observation about the user to their memory profile",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "content", Type: tools.ParamString, Required: true, Description: "Observation text"},
			{Name: "category", Type: tools.ParamString, Required: true, Description: "Insight category"},
			{Name: "confidence", Type: tools.ParamNumber, Rule: "gte=0,lte=1", Description: "Confidence in [0,1]"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		meta, err := callMetadata(ctx)
		if err != nil {
			return nil, err
		}
		content, _ := params["content"].(string)
		category, _ := params["category"].(string)
		confidence, ok := tools.Number(params, "confidence")
		if !ok {
			confidence = 0.5
		}

		if err := svc.StoreInsight(ctx, meta.UserID, meta.AgentName, content, category, confidence); err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"stored":   true,
			"category": category,
		}, nil
	})
}

func newGetMemoryProfile(svc *memory.Service) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "get_memory_profile",
		Description: "Fetch the user's remembered preferences, insights, and current focus",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "includeHistory", Type: tools.ParamBoolean, Description: "Include the insight history"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		meta, err := callMetadata(ctx)
		if err != nil {
			return nil, err
		}
		includeHistory, _ := params["includeHistory"].(bool)

		profile, err := svc.GetProfile(ctx, meta.UserID, includeHistory)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return map[string]interface{}{"found": false}, nil
		}

		preferences := make(map[string]interface{}, len(profile.Preferences))
		for key, pref := range profile.Preferences {
			preferences[key] = map[string]interface{}{
				"value":      pref.Value,
				"category":   pref.Category,
				"confidence": pref.Confidence,
			}
		}

		out := map[string]interface{}{
			"found":        true,
			"preferences":  preferences,
			"currentFocus": profile.CurrentFocus,
		}
		if includeHistory {
			insights := make([]map[string]interface{}, 0, len(profile.Insights))
			for _, insight := range profile.Insights {
				insights = append(insights, map[string]interface{}{
					"content":    insight.Content,
					"category":   insight.Category,
					"confidence": insight.Confidence,
					"agent":      insight.AgentName,
					"createdAt":  insight.CreatedAt.Format(time.RFC3339),
				})
			}
			out["insights"] = insights
		}
		return out, nil
	})
}

func newGetRecommendations(svc *memory.Service) tools.Tool {
	return tools.New(tools.Definition{
		Name:        "get_recommendations",
		Description: "Derive advisory suggestions from the user's remembered insights and preferences",
		Category:    Category,
		RiskLevel:   tools.RiskLow,
		Schema: tools.Schema{Params: []tools.ParamSpec{
			{Name: "focus", Type: tools.ParamString, Description: "Category to focus on; defaults to the profile's current focus"},
			{Name: "limit", Type: tools.ParamNumber, Rule: "gte=1,lte=20", Description: "Maximum suggestions to return"},
		}},
	}, func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		meta, err := callMetadata(ctx)
		if err != nil {
			return nil, err
		}
		focus, _ := params["focus"].(string)
		limit := 5
		if n, ok := tools.Number(params, "limit"); ok {
			limit = int(n)
		}

		recs, err := svc.GetContextualRecommendations(ctx, meta.UserID, focus, limit)
		if err != nil {
			return nil, err
		}

		out := make([]map[string]interface{}, 0, len(recs))
		for _, rec := range recs {
			out = append(out, map[string]interface{}{
				"text":       rec.Text,
				"category":   rec.Category,
				"confidence": rec.Confidence,
			})
		}
		return map[string]interface{}{
			"recommendations": out,
			"count":           len(out),
		}, nil
	})
}
