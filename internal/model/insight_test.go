package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaults_FillsAbsentFields(t *testing.T) {
	p := InsightPreferences{}.WithDefaults()
	assert.Equal(t, DefaultPreferences(), p)
}

func TestWithDefaults_KeepsEnabledTypesAsSet(t *testing.T) {
	p := InsightPreferences{EnabledTypes: map[InsightType]bool{InsightCritical: true}}.WithDefaults()

	assert.True(t, p.TypeEnabled(InsightCritical))
	assert.False(t, p.TypeEnabled(InsightWarning))
	assert.Len(t, p.EnabledTypes, 1)
	assert.NotNil(t, p.MutedInsights)
	assert.NotNil(t, p.PriorityOverrides)
	assert.Equal(t, 300, p.RefreshIntervalSeconds)
}

func TestSetTypeEnabled_FromEmptyKeepsOthers(t *testing.T) {
	var p InsightPreferences
	p.SetTypeEnabled(InsightSocial, false)
	assert.False(t, p.TypeEnabled(InsightSocial))
	assert.True(t, p.TypeEnabled(InsightCritical))
}
