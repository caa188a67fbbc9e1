// Package docs provides generated OpenAPI documentation.
//
// ocrdiff API
//
//	@title			ocrdiff API
//	@version		1.0
//	@description	Manage OCR parsers, run dual extra-accuracy comparisons and export the results.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/parserlab/ocrdiff
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/ocrdiff/serve.go -o ./swagger --parseDependency --parseInternal
