package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpawner_SpawnTeam(t *testing.T) {
	home := pos(20, 15)
	team := NewSpawner(7).SpawnTeam([]Variant{
		VariantReactive, VariantStateBased, VariantGoalBased, VariantCooperative, VariantBDI, VariantReactive,
	}, home)

	names := make([]string, len(team))
	for i, a := range team {
		assert.Equal(t, AgentID(i+1), a.ID)
		assert.Equal(t, home, a.Pos)
		assert.Equal(t, home, a.Home)
		assert.NotEmpty(t, a.Color)
		assert.NotNil(t, a.Beliefs)
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Reactive-1", "StateBased-1", "GoalBased-1", "Cooperative-1", "BDI-1", "Reactive-2"}, names)
}

func TestSpawner_SameSeedSameWalk(t *testing.T) {
	walk := func() []string {
		g := newGridForWalk()
		a := NewSpawner(42).Spawn(VariantReactive, g.Base)
		env := newEnv(g, a)
		var trail []string
		for i := 0; i < 50; i++ {
			runTick(env)
			trail = append(trail, a.Pos.String())
		}
		return trail
	}
	assert.Equal(t, walk(), walk())
}

func TestParseVariant(t *testing.T) {
	for _, v := range AllVariants {
		got, err := ParseVariant(v.String())
		assert.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseVariant("hybrid")
	assert.Error(t, err)
}
