package validators

import "go.mongodb.org/mongo-driver/bson"

var PoolLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"token",
			"expires_at",
		},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"token": bson.M{
				"bsonType": "string",
			},
			"expires_at": bson.M{
				"bsonType": "date",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
