package key

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/graft/internal/errors"
)

type userService struct {
	Primary  *strings.Builder `named:"primary"`
	Replica  *strings.Builder `named:"replica" region:"eu"`
	Plain    int
	Bad      Optional[int]
	Empty    string `named:""`
	Duration fmt.Stringer
}

type factory struct{}

func (factory) Build() (*strings.Builder, error) { return nil, nil }
func (factory) Close()                           {}

func newUserService(primary *strings.Builder, count int) *userService { return nil }

func TestRegistry_FromField(t *testing.T) {
	reg := NewRegistry()
	owner := reflect.TypeOf(userService{})

	k, err := reg.FromField(owner, 0)
	require.NoError(t, err)
	assert.Equal(t, Of[*strings.Builder](Name("primary")), k)

	k, err = reg.FromField(reflect.TypeOf(&userService{}), 2)
	require.NoError(t, err)
	assert.Equal(t, Of[int](), k)

	_, err = reg.FromField(owner, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field Bad")
	assert.Contains(t, err.Error(), "optional wrapper")

	_, err = reg.FromField(owner, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tag named")

	_, err = reg.FromField(owner, 99)
	assert.True(t, errors.IsInvalidKey(err))
}

func TestRegistry_CustomTag(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterTagQualifier("region", func(v string) (Qualifier, error) {
		return Region(v), nil
	})

	k, err := reg.FromField(reflect.TypeOf(userService{}), 1)
	require.NoError(t, err)
	assert.Equal(t, Of[*strings.Builder](Region("eu"), Name("replica")), k)
}

func TestRegistry_Memoizes(t *testing.T) {
	reg := NewRegistry()
	owner := reflect.TypeOf(userService{})

	a, err := reg.FromField(owner, 0)
	require.NoError(t, err)
	b, err := reg.FromField(owner, 0)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, reg.Len())

	reg.Reset()
	assert.Equal(t, 0, reg.Len())

	c, err := reg.FromField(owner, 0)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestRegistry_ErrorsAreNotMemoized(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.FromField(reflect.TypeOf(userService{}), 3)
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_FromParameter(t *testing.T) {
	reg := NewRegistry()
	fn := reflect.TypeOf(newUserService)

	k, err := reg.FromParameter(fn, 1)
	require.NoError(t, err)
	assert.Equal(t, Of[int](), k)

	k, err = reg.FromParameter(fn, 0, Name("primary"))
	require.NoError(t, err)
	assert.Equal(t, Of[*strings.Builder](Name("primary")), k)
	assert.Equal(t, 1, reg.Len(), "qualified lookups are not memoized")

	_, err = reg.FromParameter(fn, 2)
	assert.Error(t, err)

	_, err = reg.FromParameter(reflect.TypeOf(0), 0)
	assert.Error(t, err)
}

func TestRegistry_FromMethodReturnType(t *testing.T) {
	reg := NewRegistry()
	typ := reflect.TypeOf(factory{})

	build, ok := typ.MethodByName("Build")
	require.True(t, ok)
	k, err := reg.FromMethodReturnType(build)
	require.NoError(t, err)
	assert.Equal(t, Of[*strings.Builder](), k)

	closeM, ok := typ.MethodByName("Close")
	require.True(t, ok)
	_, err = reg.FromMethodReturnType(closeM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method Close")
	assert.Contains(t, err.Error(), "void")
}

func TestRegistry_FromCaptured(t *testing.T) {
	reg := NewRegistry()

	k, err := reg.FromCaptured(TypeToken[[]string]{})
	require.NoError(t, err)
	assert.Equal(t, Of[[]string](), k)

	k, err = reg.FromCaptured(TypeToken[map[string]int]{}, Name("counts"))
	require.NoError(t, err)
	assert.Equal(t, Of[map[string]int](Name("counts")), k)

	_, err = reg.FromCaptured(TypeToken[Deferred[string]]{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deferred provider")

	_, err = reg.FromCaptured(nil)
	assert.Error(t, err)
}

func TestRegistry_ConcurrentFirstAccess(t *testing.T) {
	reg := NewRegistry()
	owner := reflect.TypeOf(userService{})

	const workers = 16
	results := make([]Key, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := reg.FromField(owner, i%3)
			if err == nil {
				results[i] = k
			}
		}(i)
	}
	wg.Wait()

	for i, k := range results {
		want, err := reg.FromField(owner, i%3)
		require.NoError(t, err)
		assert.Equal(t, want, k)
	}
	assert.Equal(t, 3, reg.Len())
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())

	k, err := FromParameter(reflect.TypeOf(newUserService), 1)
	require.NoError(t, err)
	assert.Equal(t, Of[int](), k)
}
