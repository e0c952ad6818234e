package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// MaxNesting is the deepest arrays and dictionaries may nest inside one value.
const MaxNesting = 512

// ErrNestingTooDeep is returned for values nested deeper than MaxNesting.
var ErrNestingTooDeep = errors.New("value nested too deeply")

// ReferenceResolver is an interface for resolving indirect references.
// The parser uses it to resolve indirect stream lengths.
type ReferenceResolver interface {
	ResolveReference(ref Reference) (Object, error)
}

// Parser parses PDF objects from an io.Reader using a Lexer for tokenization.
// It supports parsing all PDF object types including indirect objects and streams.
type Parser struct {
	lexer        *Lexer
	currentToken *Token
	peekToken    *Token // Next token (lookahead)
	resolver     ReferenceResolver
	scanStreams  bool
	depth        int // open arrays and dictionaries
}

// NewParser creates a new PDF parser for the given reader.
func NewParser(r io.Reader) *Parser {
	return newParser(NewLexer(r))
}

// NewParserAt creates a parser whose token positions start at offset. Loaders
// that hand the parser a slice of a larger file use it to keep positions
// file-relative.
func NewParserAt(r io.Reader, offset int64) *Parser {
	return newParser(NewLexerAt(r, offset))
}

func newParser(l *Lexer) *Parser {
	p := &Parser{lexer: l}
	// Load first two tokens
	p.nextToken()
	p.nextToken()
	return p
}

// SetReferenceResolver sets the reference resolver for the parser.
// This is needed to resolve indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetScanStreams makes the parser ignore /Length and take stream data up to
// the endstream keyword. Damaged files often carry wrong lengths.
func (p *Parser) SetScanStreams(scan bool) {
	p.scanStreams = scan
}

// Offset returns the position of the first byte not yet consumed by the
// parser, relative to the offset the parser was created with.
func (p *Parser) Offset() int64 {
	if p.currentToken != nil {
		return p.currentToken.Pos
	}
	return p.lexer.Pos()
}

// nextToken advances the parser to the next token by shifting the lookahead.
func (p *Parser) nextToken() error {
	p.currentToken = p.peekToken

	// Stream data is binary and is read directly by parseStream.
	if p.currentToken != nil && p.currentToken.Type == TokenKeyword &&
		string(p.currentToken.Value) == "stream" {
		p.peekToken = nil
		return nil
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.peekToken = token
	return nil
}

func (p *Parser) skipComments() error {
	for p.currentToken != nil && p.currentToken.Type == TokenComment {
		if err := p.nextToken(); err != nil {
			return err
		}
	}
	return nil
}

// atKeyword reports whether the current token is the given keyword.
func (p *Parser) atKeyword(kw string) bool {
	return p.currentToken != nil && p.currentToken.Type == TokenKeyword &&
		string(p.currentToken.Value) == kw
}

// ParseObject parses and returns the next PDF object from the input.
func (p *Parser) ParseObject() (Object, error) {
	if err := p.skipComments(); err != nil {
		return nil, err
	}
	if p.currentToken == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch p.currentToken.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		keyword := string(p.currentToken.Value)
		switch keyword {
		case "null":
			p.nextToken()
			return Null{}, nil
		case "true":
			p.nextToken()
			return Bool(true), nil
		case "false":
			p.nextToken()
			return Bool(false), nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q at position %d", keyword, p.currentToken.Pos)
		}

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(p.currentToken.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number: %w", err)
		}
		p.nextToken()
		return Real(val), nil

	case TokenString:
		val := string(p.currentToken.Value)
		p.nextToken()
		return String(val), nil

	case TokenHexString:
		hexStr := p.currentToken.Value
		result := make([]byte, (len(hexStr)+1)/2)
		for i := range result {
			hi := hexValue(hexStr[2*i])
			var lo byte
			if 2*i+1 < len(hexStr) {
				lo = hexValue(hexStr[2*i+1])
			}
			result[i] = hi<<4 | lo
		}
		p.nextToken()
		return String(result), nil

	case TokenName:
		val := string(p.currentToken.Value)
		p.nextToken()
		return Name(val), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()

	default:
		return nil, fmt.Errorf("unexpected token %v at position %d", p.currentToken.Type, p.currentToken.Pos)
	}
}

// parseNumber parses an integer, real number, or indirect reference.
// Indirect references are detected by lookahead: "num gen R" pattern.
func (p *Parser) parseNumber() (Object, error) {
	first, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(p.currentToken.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number: %s", p.currentToken.Value)
		}
		p.nextToken()
		return Real(f), nil
	}

	if p.peekToken != nil && p.peekToken.Type == TokenInteger {
		second, err := strconv.ParseInt(string(p.peekToken.Value), 10, 64)
		if err == nil {
			p.nextToken() // now at the second integer
			if p.peekToken != nil && p.peekToken.Type == TokenReference {
				p.nextToken() // R
				p.nextToken()
				ref, err := makeReference(first, second)
				if err != nil {
					return nil, err
				}
				return ref, nil
			}
			// The second integer stays current and is parsed next.
			return Int(first), nil
		}
	}

	p.nextToken()
	return Int(first), nil
}

func makeReference(num, gen int64) (Reference, error) {
	if num < 0 || num > 1<<32-1 || gen < 0 || gen > 1<<16-1 {
		return Reference{}, fmt.Errorf("reference %d %d out of range", num, gen)
	}
	return Reference{Number: uint32(num), Generation: uint16(gen)}, nil
}

// enter opens a nested array or dictionary.
func (p *Parser) enter() error {
	if p.depth >= MaxNesting {
		return fmt.Errorf("%w (%d) at position %d", ErrNestingTooDeep, MaxNesting, p.currentToken.Pos)
	}
	p.depth++
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

// parseArray parses a PDF array "[obj1 obj2 ...]".
func (p *Parser) parseArray() (Object, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	p.nextToken()

	arr := Array{}
	for {
		if err := p.skipComments(); err != nil {
			return nil, err
		}
		if p.currentToken == nil || p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected end of input in array")
		}
		if p.currentToken.Type == TokenArrayEnd {
			p.nextToken()
			return arr, nil
		}

		obj, err := p.ParseObject()
		if errors.Is(err, ErrNestingTooDeep) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a PDF dictionary "<< /Key value ... >>".
func (p *Parser) parseDict() (Object, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	p.nextToken()

	dict := make(Dict)
	for {
		if err := p.skipComments(); err != nil {
			return nil, err
		}
		if p.currentToken == nil || p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected end of input in dictionary")
		}
		if p.currentToken.Type == TokenDictEnd {
			p.nextToken()
			return dict, nil
		}

		if p.currentToken.Type != TokenName {
			return nil, fmt.Errorf("expected name for dictionary key, got %v at position %d",
				p.currentToken.Type, p.currentToken.Pos)
		}
		key := string(p.currentToken.Value)
		p.nextToken()

		value, err := p.ParseObject()
		if errors.Is(err, ErrNestingTooDeep) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key '%s': %w", key, err)
		}

		// A null value is equivalent to an absent entry.
		if _, isNull := value.(Null); isNull {
			continue
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses an indirect object definition.
// Format: "num gen obj <object> endobj" or "num gen obj <dict> stream ... endstream endobj".
// A missing endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	if err := p.skipComments(); err != nil {
		return nil, err
	}

	var nums [2]int64
	for i := range nums {
		if p.currentToken == nil || p.currentToken.Type != TokenInteger {
			return nil, fmt.Errorf("expected object header integer, got %v", p.currentToken)
		}
		n, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid object header: %w", err)
		}
		nums[i] = n
		p.nextToken()
	}
	ref, err := makeReference(nums[0], nums[1])
	if err != nil {
		return nil, err
	}
	if err := CheckObjectNumber(uint64(ref.Number)); err != nil {
		return nil, err
	}

	if !p.atKeyword("obj") {
		return nil, fmt.Errorf("expected 'obj' keyword for %v, got %v", ref, p.currentToken)
	}
	p.nextToken()

	var obj Object
	if p.atKeyword("endobj") {
		obj = Null{}
	} else {
		obj, err = p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing value of %v: %w", ref, err)
		}
	}

	if p.atKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary in %v", ref)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("error parsing stream of %v: %w", ref, err)
		}
		obj = stream
	}

	if p.atKeyword("endobj") {
		p.nextToken()
	}

	return &IndirectObject{Ref: ref, Object: obj}, nil
}

// ParseTrailer parses "trailer << ... >>" and returns the dictionary.
func (p *Parser) ParseTrailer() (Dict, error) {
	if err := p.skipComments(); err != nil {
		return nil, err
	}
	if !p.atKeyword("trailer") {
		return nil, fmt.Errorf("expected 'trailer' keyword, got %v", p.currentToken)
	}
	p.nextToken()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("error parsing trailer: %w", err)
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %T, expected Dict", obj)
	}
	return dict, nil
}

// parseStream parses a stream body after the "stream" keyword.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("failed to skip EOL after stream keyword: %w", err)
	}

	length, known, err := p.streamLength(dict)
	if err != nil {
		return nil, err
	}

	var data []byte
	if known && !p.scanStreams {
		data, err = p.lexer.ReadBytes(length)
		if err != nil {
			return nil, fmt.Errorf("failed to read stream data: %w", err)
		}
	} else {
		data, err = p.lexer.ReadUntil([]byte("endstream"))
		if err != nil {
			return nil, err
		}
		data = trimStreamEOL(data)
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read token after stream data: %w", err)
	}
	if token.Type != TokenKeyword || string(token.Value) != "endstream" {
		return nil, fmt.Errorf("stream length %d does not end at 'endstream' (found %v %q)",
			length, token.Type, token.Value)
	}

	// Reload the current and peek tokens after the raw read.
	p.currentToken = nil
	p.peekToken = nil
	p.nextToken()
	p.nextToken()

	return &Stream{Dict: dict, Data: data}, nil
}

// streamLength returns the stream's declared length. known is false when the
// length cannot be determined and the data must be scanned instead.
func (p *Parser) streamLength(dict Dict) (length int, known bool, err error) {
	switch v := dict.Get("Length").(type) {
	case Int:
		if v < 0 {
			return 0, false, fmt.Errorf("invalid stream length: %d", v)
		}
		return int(v), true, nil
	case Reference:
		if p.resolver == nil {
			return 0, false, nil
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, false, nil
		}
		if n, ok := resolved.(Int); ok && n >= 0 {
			return int(n), true, nil
		}
		return 0, false, nil
	default:
		return 0, false, nil
	}
}

func trimStreamEOL(data []byte) []byte {
	if bytes.HasSuffix(data, []byte("\r\n")) {
		return data[:len(data)-2]
	}
	if bytes.HasSuffix(data, []byte("\n")) || bytes.HasSuffix(data, []byte("\r")) {
		return data[:len(data)-1]
	}
	return data
}
