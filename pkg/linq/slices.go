package linq

// PredicateFunc tests a condition over an element. Returns true if the
// element satisfies the condition, false otherwise.
type PredicateFunc[T any] func(T) bool

// MapFunc transforms an element of type I into type O.
type MapFunc[I, O any] func(I) O

// GroupByFunc extracts a comparable key from an element.
type GroupByFunc[T any, K comparable] func(T) K

// SumFunc converts an element into a float64 value.
type SumFunc[T any] func(T) float64

// Filter returns a new slice containing only the elements that satisfy
// the predicate fn. Does not modify the original slice. Safe for
// concurrent use as long as the original slice isn't modified by other
// goroutines.
//
// Returns nil if items is nil or if no element satisfies the predicate.
//
// Example:
//
//	numbers := []int{1, 2, 3, 4, 5}
//	evens := linq.Filter(numbers, func(n int) bool { return n%2 == 0 })
//	// evens = []int{2, 4}
func Filter[T any](items []T, fn PredicateFunc[T]) []T {
	if items == nil {
		return nil
	}

	var result []T
	for _, item := range items {
		if fn(item) {
			result = append(result, item)
		}
	}
	return result
}

// Find returns the first element that satisfies the predicate fn.
// Returns the zero value of T if no element is found or items is nil.
// Does not modify the original slice.
//
// Example:
//
//	numbers := []int{1, 2, 3, 4, 5}
//	found := linq.Find(numbers, func(n int) bool { return n > 3 })
//	// found = 4
func Find[T any](items []T, fn PredicateFunc[T]) T {
	var empty T
	if items == nil {
		return empty
	}

	for _, item := range items {
		if fn(item) {
			return item
		}
	}
	return empty
}

// Remove returns a new slice without the elements that satisfy the
// predicate fn. Does not modify the original slice. Safe for
// concurrent use as long as the original slice isn't modified by other
// goroutines.
//
// Returns nil if items is nil or if every element is removed.
//
// Example:
//
//	numbers := []int{1, 2, 3, 4, 5}
//	filtered := linq.Remove(numbers, func(n int) bool { return n > 3 })
//	// filtered = []int{1, 2, 3}
func Remove[T any](items []T, fn PredicateFunc[T]) []T {
	if items == nil {
		return nil
	}

	var result []T
	for _, item := range items {
		if !fn(item) {
			result = append(result, item)
		}
	}
	return result
}

// Map transforms each element of the slice using fn and returns a new
// slice of the transformed elements. Does not modify the original
// slice. Safe for concurrent use as long as the original slice isn't
// modified by other goroutines.
//
// Returns nil if items is nil.
//
// Example:
//
//	numbers := []int{1, 2, 3}
//	doubled := linq.Map(numbers, func(n int) int { return n * 2 })
//	// doubled = []int{2, 4, 6}
func Map[I, O any](items []I, fn MapFunc[I, O]) []O {
	if items == nil {
		return nil
	}

	result := make([]O, len(items))
	for index, item := range items {
		result[index] = fn(item)
	}
	return result
}

// GroupBy groups the elements of the slice by a key extracted by fn.
// Returns a map whose keys are the values returned by fn and whose
// values are slices of the elements sharing that key. Does not modify
// the original slice.
//
// Returns an empty map if items is nil or empty.
//
// Example:
//
//	type Person struct { Name string; Age int }
//	people := []Person{{"Alice", 25}, {"Bob", 25}, {"Charlie", 30}}
//	byAge := linq.GroupBy(people, func(p Person) int { return p.Age })
//	// byAge = map[int][]Person{25: {{"Alice", 25}, {"Bob", 25}}, 30: {{"Charlie", 30}}}
func GroupBy[T any, K comparable](items []T, fn GroupByFunc[T, K]) map[K][]T {
	grouped := make(map[K][]T)

	if items == nil {
		return grouped
	}

	for _, item := range items {
		key := fn(item)
		grouped[key] = append(grouped[key], item)
	}
	return grouped
}

// Sum adds up every element of the slice, using fn to convert each
// element into a float64.
//
// Returns 0 if items is nil or empty.
//
// Example:
//
//	type Product struct { Name string; Price float64 }
//	products := []Product{{"A", 10.5}, {"B", 20.3}, {"C", 5.2}}
//	total := linq.Sum(products, func(p Product) float64 { return p.Price })
//	// total = 36.0
func Sum[T any](items []T, fn SumFunc[T]) float64 {
	var sum float64

	if items == nil {
		return sum
	}

	for _, item := range items {
		sum += fn(item)
	}
	return sum
}
