package repository

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func lookup(from, localField, foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: foreignField},
		{Key: "as", Value: as},
	}}}
}

// ListPipeline joins developers and strategies for every project.
// assignedStrategiesWithAllTactics matches a strategy when any of its embedded
// tactics is assigned to the project; tactics are narrowed afterwards in Go.
func ListPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		lookup(UsersCollection, "assignedDevelopers", "_id", "assignedDevelopers"),
		lookup(StrategiesCollection, "assignedTactics", "assignedTactics._id", "assignedStrategiesWithAllTactics"),
		lookup(StrategiesCollection, "assignedStrategies", "_id", "assignedStrategies"),
	}
}

// DetailPipeline is ListPipeline for a single project, additionally joining comment authors.
func DetailPipeline(id primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		lookup(UsersCollection, "assignedDevelopers", "_id", "assignedDevelopers"),
		lookup(UsersCollection, "comment.author", "_id", "commentAttendees"),
		lookup(StrategiesCollection, "assignedTactics", "assignedTactics._id", "assignedStrategiesWithAllTactics"),
		lookup(StrategiesCollection, "assignedStrategies", "_id", "assignedStrategies"),
	}
}
