package persistence

import (
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func NewMongoDb(host, port, user, password, name string) (*mongo.Client, error) {
	u := &url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%s", host, port), Path: "/" + name}
	if user != "" {
		u.User = url.UserPassword(user, password)
		u.RawQuery = "authSource=admin"
	}
	return mongo.Connect(options.Client().ApplyURI(u.String()))
}
