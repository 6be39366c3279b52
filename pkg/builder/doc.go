// Package builder assembles ordered field descriptor sets through a fluent,
// chainable API.
//
// Entity-specific builders declare their fields once, at construction:
//
//	type UserFields struct{ *builder.Builder }
//
//	func NewUserFields() UserFields {
//		b := builder.New(builder.WithLabeler(labels.Humanize))
//		b.FieldFor("name").WithLabel("Name").Required()
//		b.FieldFor("role").Select([]model.Option{{Value: "1", Label: "Admin"}})
//		b.FieldFor("avatar").File(builder.FileSpec{WithImagePreview: true})
//		return UserFields{b}
//	}
//
// The method set of FieldBuilder is closed. Reusable declaration fragments
// are plain functions of type Extension applied with FieldBuilder.Apply.
//
// Methods that set the control type (Select, Password, Boolean, File, ...)
// follow a last-write-wins rule: the final call decides the type. Build
// rejects descriptor sets whose option sources contradict the final type.
package builder
