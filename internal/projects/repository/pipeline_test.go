package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func stageOp(t *testing.T, stage bson.D) (string, bson.D) {
	t.Helper()
	require.Len(t, stage, 1)
	body, ok := stage[0].Value.(bson.D)
	require.True(t, ok)
	return stage[0].Key, body
}

func lookupAs(t *testing.T, body bson.D) (from, local, foreign, as string) {
	t.Helper()
	m := body.Map()
	return m["from"].(string), m["localField"].(string), m["foreignField"].(string), m["as"].(string)
}

func TestListPipeline(t *testing.T) {
	p := ListPipeline()
	require.Len(t, p, 3)

	var got [][4]string
	for _, stage := range p {
		op, body := stageOp(t, stage)
		assert.Equal(t, "$lookup", op)
		from, local, foreign, as := lookupAs(t, body)
		got = append(got, [4]string{from, local, foreign, as})
	}

	assert.Equal(t, [][4]string{
		{UsersCollection, "assignedDevelopers", "_id", "assignedDevelopers"},
		{StrategiesCollection, "assignedTactics", "assignedTactics._id", "assignedStrategiesWithAllTactics"},
		{StrategiesCollection, "assignedStrategies", "_id", "assignedStrategies"},
	}, got)
}

func TestDetailPipeline(t *testing.T) {
	id := primitive.NewObjectID()
	p := DetailPipeline(id)
	require.Len(t, p, 5)

	op, body := stageOp(t, p[0])
	assert.Equal(t, "$match", op)
	assert.Equal(t, id, body.Map()["_id"])

	op, body = stageOp(t, p[2])
	assert.Equal(t, "$lookup", op)
	from, local, _, as := lookupAs(t, body)
	assert.Equal(t, UsersCollection, from)
	assert.Equal(t, "comment.author", local)
	assert.Equal(t, "commentAttendees", as)
}

func TestAddFinishedTactic(t *testing.T) {
	tactic := primitive.NewObjectID()
	assert.Equal(t, bson.M{"$addToSet": bson.M{"finishedTactics": tactic}}, addFinishedTactic(tactic))
}
