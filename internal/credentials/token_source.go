package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	pathutils "github.com/temirov/layeraudit/internal/utils/path"
)

const (
	sourceSeparatorConstant                 = ":"
	environmentSourceKindValueConstant      = "env"
	fileSourceKindValueConstant             = "file"
	environmentNameMissingMessageConstant   = "token environment variable name must be provided"
	filePathMissingMessageConstant          = "token file path must be provided"
	environmentTokenMissingTemplateConstant = "token environment variable %s is not set"
	fileReadErrorTemplateConstant           = "unable to read token file %s: %w"
	fileTokenEmptyTemplateConstant          = "token file %s is empty"
	unsupportedSourceKindTemplateConstant   = "unsupported token source kind %q"
	tokenSourceParseErrorTemplateConstant   = "invalid token source %q: %w"
)

// SourceKind enumerates where a portal token is read from.
type SourceKind string

// Supported token source kinds.
const (
	SourceKindNone        SourceKind = ""
	SourceKindEnvironment SourceKind = SourceKind(environmentSourceKindValueConstant)
	SourceKindFile        SourceKind = SourceKind(fileSourceKindValueConstant)
)

// Source identifies a token location.
type Source struct {
	Kind      SourceKind
	Reference string
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// ParseSource interprets a token declaration. An empty declaration means anonymous access,
// and a bare value names an environment variable.
func ParseSource(declaration string) (Source, error) {
	trimmedDeclaration := strings.TrimSpace(declaration)
	if len(trimmedDeclaration) == 0 {
		return Source{Kind: SourceKindNone}, nil
	}

	components := strings.SplitN(trimmedDeclaration, sourceSeparatorConstant, 2)
	if len(components) == 1 {
		return Source{Kind: SourceKindEnvironment, Reference: trimmedDeclaration}, nil
	}

	sourceKind := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceKind {
	case environmentSourceKindValueConstant:
		if len(reference) == 0 {
			return Source{}, errors.New(environmentNameMissingMessageConstant)
		}
		return Source{Kind: SourceKindEnvironment, Reference: reference}, nil
	case fileSourceKindValueConstant:
		if len(reference) == 0 {
			return Source{}, errors.New(filePathMissingMessageConstant)
		}
		return Source{Kind: SourceKindFile, Reference: reference}, nil
	default:
		return Source{}, fmt.Errorf(unsupportedSourceKindTemplateConstant, sourceKind)
	}
}

// Resolver reads portal tokens from the environment or from files.
type Resolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	homeExpander      *pathutils.HomeExpander
}

// NewResolver creates a resolver; nil collaborators fall back to the operating system.
func NewResolver(environmentLookup EnvironmentLookup, fileReader FileReader) *Resolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return &Resolver{
		environmentLookup: environmentLookup,
		fileReader:        fileReader,
		homeExpander:      pathutils.NewHomeExpander(),
	}
}

// ResolveDeclaration parses and resolves a declaration in one step.
func (resolver *Resolver) ResolveDeclaration(resolutionContext context.Context, declaration string) (string, error) {
	source, parseError := ParseSource(declaration)
	if parseError != nil {
		return "", fmt.Errorf(tokenSourceParseErrorTemplateConstant, declaration, parseError)
	}
	return resolver.Resolve(resolutionContext, source)
}

// Resolve returns the trimmed token for source; SourceKindNone yields an empty token.
func (resolver *Resolver) Resolve(resolutionContext context.Context, source Source) (string, error) {
	if contextError := resolutionContext.Err(); contextError != nil {
		return "", contextError
	}
	switch source.Kind {
	case SourceKindNone:
		return "", nil
	case SourceKindEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case SourceKindFile:
		filePath := resolver.homeExpander.Expand(source.Reference)
		contents, readError := resolver.fileReader(filePath)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, filePath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyTemplateConstant, filePath)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedSourceKindTemplateConstant, source.Kind)
	}
}
