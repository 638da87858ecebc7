// Package store is the gorm data access layer. Each entity gets a small DAO
// behind an interface, all handed out by one factory.
package store

import "gorm.io/gorm"

type ShareDaoFactory interface {
	Users() UserInterface
	Projects() ProjectInterface
	Members() MemberInterface
	Images() ImageInterface
	Labels() LabelInterface
	Annotations() AnnotationInterface
	Graph() ProjectReader
}

type factory struct {
	db *gorm.DB
}

func NewDaoFactory(db *gorm.DB) ShareDaoFactory {
	return &factory{db: db}
}

func (f *factory) Users() UserInterface             { return newUsers(f.db) }
func (f *factory) Projects() ProjectInterface       { return newProjects(f.db) }
func (f *factory) Members() MemberInterface         { return newMembers(f.db) }
func (f *factory) Images() ImageInterface           { return newImages(f.db) }
func (f *factory) Labels() LabelInterface           { return newLabels(f.db) }
func (f *factory) Annotations() AnnotationInterface { return newAnnotations(f.db) }
func (f *factory) Graph() ProjectReader             { return newGraph(f.db) }
