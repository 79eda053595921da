package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/pkg/models"
)

func TestCatalog_CommonToolsPresentForEveryKind(t *testing.T) {
	for _, kind := range []models.ExperimentType{
		models.ExperimentShapeFactory, models.ExperimentDayTrader,
		models.ExperimentEssayRanking, models.ExperimentWordGuessing,
		models.ExperimentHiddenProfiles,
	} {
		names := make(map[string]bool)
		for _, tool := range Catalog(kind) {
			names[tool.Name] = true
		}
		assert.True(t, names["get_game_state"], "%s missing get_game_state", kind)
		assert.True(t, names["send_message"], "%s missing send_message", kind)
		assert.True(t, names["mark_messages_as_read"], "%s missing mark_messages_as_read", kind)
	}
}

func TestCatalog_KindSpecificToolsAreScoped(t *testing.T) {
	shapeNames := make(map[string]bool)
	for _, tool := range Catalog(models.ExperimentShapeFactory) {
		shapeNames[tool.Name] = true
	}
	assert.True(t, shapeNames["produce_shape"])

	wordNames := make(map[string]bool)
	for _, tool := range Catalog(models.ExperimentWordGuessing) {
		wordNames[tool.Name] = true
	}
	assert.False(t, wordNames["produce_shape"], "produce_shape must not leak into WordGuessing")
	assert.True(t, wordNames["get_assigned_words"])
}

func TestValidate_RejectsMissingRequiredField(t *testing.T) {
	f := Validate("send_message", json.RawMessage(`{"recipient":"P1"}`))
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}

func TestValidate_AcceptsWellFormedArgs(t *testing.T) {
	f := Validate("create_trade_offer", json.RawMessage(`{"recipient":"P2","offer_type":"sell","shape":"circle","quantity":2,"price_per_unit":10}`))
	assert.Nil(t, f)
}

func TestValidate_RejectsEnumViolation(t *testing.T) {
	f := Validate("create_trade_offer", json.RawMessage(`{"recipient":"P2","offer_type":"gift","shape":"circle","quantity":2,"price_per_unit":10}`))
	require.NotNil(t, f)
}

func TestValidate_EmptyArgsOkForNoParamTools(t *testing.T) {
	f := Validate("get_game_state", nil)
	assert.Nil(t, f)
}

func TestValidate_UnknownTool(t *testing.T) {
	f := Validate("delete_everything", json.RawMessage(`{}`))
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}
