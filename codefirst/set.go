package codefirst

import "reflect"

// Set declares an entity set on a context struct. The field name is the
// set name unless overridden with an edm:"name=..." tag.
//
//	type BloggingContext struct {
//	    Blogs codefirst.Set[Blog]
//	    Posts codefirst.Set[Post]
//	}
type Set[T any] struct{}

func (Set[T]) entityType() reflect.Type {
	return reflect.TypeFor[T]()
}

// entitySet is implemented by every Set instantiation.
type entitySet interface {
	entityType() reflect.Type
}

var entitySetType = reflect.TypeFor[entitySet]()

// Namespacer is implemented by contexts that choose their model namespace.
type Namespacer interface {
	Namespace() string
}
