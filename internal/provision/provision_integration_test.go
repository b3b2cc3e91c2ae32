//go:build integration

package provision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mongoprov/internal/data/store"
	apperrors "mongoprov/internal/errors"
)

type mongoFixture struct {
	store  *store.MongoStore
	client *mongo.Client
	db     *mongo.Database
}

func startFixture(t *testing.T, database string) *mongoFixture {
	t.Helper()
	ctx := context.Background()

	container, err := mongocontainer.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	s, err := store.Connect(ctx, store.Options{
		URI:              uri,
		Database:         database,
		ConnectTimeout:   20 * time.Second,
		OperationTimeout: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return &mongoFixture{store: s, client: client, db: client.Database(database)}
}

func indexSpecs(t *testing.T, coll *mongo.Collection) map[string]bson.M {
	t.Helper()
	ctx := context.Background()

	cursor, err := coll.Indexes().List(ctx)
	require.NoError(t, err)
	var docs []bson.M
	require.NoError(t, cursor.All(ctx, &docs))

	out := make(map[string]bson.M, len(docs))
	for _, doc := range docs {
		out[doc["name"].(string)] = doc
	}
	return out
}

func TestProvisionAgainstServer(t *testing.T) {
	ctx := context.Background()
	fx := startFixture(t, "examen_parcial_db")
	p, _ := newTestProvisioner(t, fx.store, Options{})

	report, err := p.Apply(ctx, defaultPlan(t))
	require.NoError(t, err)
	require.Equal(t, 6, report.Count(StatusCreated))

	names, err := fx.db.ListCollectionNames(ctx, bson.D{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"usuarios", "logs_actividad"}, names)

	usuarios := indexSpecs(t, fx.db.Collection("usuarios"))
	require.Contains(t, usuarios, "email_1")
	require.Equal(t, true, usuarios["email_1"]["unique"])
	require.Contains(t, usuarios, "mysql_id_1")
	require.NotContains(t, usuarios["mysql_id_1"], "unique")

	logs := indexSpecs(t, fx.db.Collection("logs_actividad"))
	require.Contains(t, logs, "usuario_id_mysql_1")
	require.Contains(t, logs, "fecha_-1")
	require.EqualValues(t, -1, logs["fecha_-1"]["key"].(bson.M)["fecha"])

	// Unique email is enforced, mysql_id is not.
	coll := fx.db.Collection("usuarios")
	_, err = coll.InsertOne(ctx, bson.M{"email": "ana@example.com", "mysql_id": 7})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, bson.M{"email": "ana@example.com", "mysql_id": 8})
	require.True(t, mongo.IsDuplicateKeyError(err), "got %v", err)
	_, err = coll.InsertOne(ctx, bson.M{"email": "luis@example.com", "mysql_id": 7})
	require.NoError(t, err)

	again, err := p.Apply(ctx, defaultPlan(t))
	require.NoError(t, err)
	require.Equal(t, 6, again.Count(StatusUnchanged))
	require.Len(t, indexSpecs(t, fx.db.Collection("usuarios")), 3)

	count, err := coll.CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestProvisionReportsDuplicateEmailsOnServer(t *testing.T) {
	ctx := context.Background()
	fx := startFixture(t, "examen_dup")

	_, err := fx.db.Collection("usuarios").InsertMany(ctx, []interface{}{
		bson.M{"email": "ana@example.com", "mysql_id": 1},
		bson.M{"email": "ana@example.com", "mysql_id": 2},
	})
	require.NoError(t, err)

	p, _ := newTestProvisioner(t, fx.store, Options{})
	report, err := p.Apply(ctx, defaultPlan(t))
	require.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateValues), "got %v", err)
	require.False(t, report.Succeeded())

	usuarios := indexSpecs(t, fx.db.Collection("usuarios"))
	require.NotContains(t, usuarios, "email_1")
}
