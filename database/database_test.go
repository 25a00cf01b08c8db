package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates all indexes", func(mt *mtest.T) {
		m := FromDatabase(mt.Client, mt.DB)
		assert.Equal(t, BlogsCollection, m.Blogs.Name())
		assert.Equal(t, IdentitiesCollection, m.Identities.Name())

		for i := 0; i < 3; i++ {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}
		require.NoError(mt, m.EnsureIndexes(context.Background()))
	})

	mt.Run("stops on first failure", func(mt *mtest.T) {
		m := FromDatabase(mt.Client, mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    85,
			Message: "index options conflict",
			Name:    "IndexOptionsConflict",
		}))
		assert.Error(mt, m.EnsureIndexes(context.Background()))
	})

	mt.Run("disconnect nil", func(mt *mtest.T) {
		var m *Mongo
		assert.NoError(mt, m.Disconnect())
	})
}
