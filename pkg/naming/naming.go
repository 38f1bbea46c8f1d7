package naming

import (
	"strings"
	"sync"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"

	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	// runNameWords is how many words make up a run name.
	runNameWords = 2
)

// Namer generates resource names that are unique for its lifetime.
type Namer struct {
	// issued is every name handed out so far.
	issued sets.Set[string]

	lock sync.Mutex
}

// New returns a new resource namer.
func New() *Namer {
	return &Namer{
		issued: sets.New[string](),
	}
}

// Make returns a resource name of the form <prefix>-<suffix> where the suffix
// is the first group of a random UUID.  Collisions with previously issued
// names are retried.
func (n *Namer) Make(prefix string) string {
	n.lock.Lock()
	defer n.lock.Unlock()

	for {
		suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
		name := prefix + "-" + suffix

		if n.issued.Has(name) {
			continue
		}

		n.issued.Insert(name)

		return name
	}
}

// Issued returns how many names have been generated.
func (n *Namer) Issued() int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.issued.Len()
}

// defaultNamer backs the package level helper.
var defaultNamer = New()

// MakeResourceName returns a name that is unique within the process.
func MakeResourceName(prefix string) string {
	return defaultNamer.Make(prefix)
}

// RunName returns a human friendly name to identify a test run in logs and reports.
func RunName() string {
	return petname.Generate(runNameWords, "-")
}
