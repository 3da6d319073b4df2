/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package types defines the value types and sentinel errors shared by every component of the sorting machine.
package types

// Item is a single present travelling through the machine. It is immutable once created; ownership passes from a
// feeder's backlog, along conveyors and through routers, until it is stored in a bin.
type Item struct {
	category string
}

// NewItem creates an item labelled with the given destination category (e.g. an age range such as "0-3").
func NewItem(category string) Item {
	return Item{category: category}
}

// Category returns the label used to resolve the item's destination bin.
func (i Item) Category() string {
	return i.category
}

// String implements fmt.Stringer.
func (i Item) String() string {
	return "Item{" + i.category + "}"
}
