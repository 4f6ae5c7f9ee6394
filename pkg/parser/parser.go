// Package parser lowers node-graph workflow documents (nodes keyed by id,
// linked by "next", with typed input references) into the pkg/ast tree the
// runtime executes. It mirrors the teacher's document-walking style — a
// structured ParseError with node/field location, resource-limit constants —
// applied to a different document shape: a graph of opcodes, not a YAML step
// list.
package parser

import (
	"fmt"

	"github.com/lemonberrylabs/lexflow/pkg/ast"
	"github.com/lemonberrylabs/lexflow/pkg/types"
	"gopkg.in/yaml.v3"
)

// MaxSourceSize is the maximum workflow document size in bytes (128 KB).
const MaxSourceSize = 128 * 1024

// ParseError is a structured, fatal parse failure naming the workflow, node,
// and field at fault.
type ParseError struct {
	Workflow string
	Node     string
	Field    string
	Message  string
}

func (e *ParseError) Error() string {
	loc := ""
	switch {
	case e.Workflow != "" && e.Node != "":
		loc = fmt.Sprintf(" (workflow %q, node %q)", e.Workflow, e.Node)
	case e.Workflow != "":
		loc = fmt.Sprintf(" (workflow %q)", e.Workflow)
	}
	if e.Field != "" {
		loc += fmt.Sprintf(" [field %q]", e.Field)
	}
	return fmt.Sprintf("parse error%s: %s", loc, e.Message)
}

// inputDoc is exactly one of {literal, variable, node, branch, workflow_call}.
type inputDoc struct {
	Kind    string // "literal" | "variable" | "node" | "branch" | "workflow_call"
	Literal interface{}
	Ref     string
}

func (i *inputDoc) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]yaml.Node
	if err := value.Decode(&m); err != nil {
		return err
	}
	if n, ok := m["literal"]; ok {
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return err
		}
		i.Kind, i.Literal = "literal", v
		return nil
	}
	if n, ok := m["variable"]; ok {
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		i.Kind, i.Ref = "variable", s
		return nil
	}
	if n, ok := m["node"]; ok {
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		i.Kind, i.Ref = "node", s
		return nil
	}
	if n, ok := m["branch"]; ok {
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		i.Kind, i.Ref = "branch", s
		return nil
	}
	if n, ok := m["workflow_call"]; ok {
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		i.Kind, i.Ref = "workflow_call", s
		return nil
	}
	return fmt.Errorf("input must be exactly one of literal, variable, node, branch, workflow_call")
}

type nodeDoc struct {
	Opcode     string              `yaml:"opcode"`
	Next       *string             `yaml:"next"`
	Inputs     map[string]inputDoc `yaml:"inputs"`
	IsReporter bool                `yaml:"isReporter"`
	Fields     map[string]interface{} `yaml:"fields"`
}

type interfaceDoc struct {
	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
}

type workflowDoc struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Interface   interfaceDoc           `yaml:"interface"`
	Variables   map[string]interface{} `yaml:"variables"`
	Nodes       map[string]nodeDoc     `yaml:"nodes"`
	Comments    map[string]interface{} `yaml:"comments"`
}

type document struct {
	Workflows []workflowDoc          `yaml:"workflows"`
	Globals   map[string]interface{} `yaml:"globals"`
	Metadata  map[string]interface{} `yaml:"metadata"`
}

const startNodeID = "start"
const startOpcode = "workflow_start"

// wfParser holds the per-workflow lowering state: the node table plus
// memoization caches, since reporters and branches may be shared (the AST is
// a DAG, not a tree).
type wfParser struct {
	workflowName string
	nodes        map[string]nodeDoc
	reporters    map[string]ast.Expression
	resolving    map[string]bool
	branches     map[string]*ast.Block
}

// Parse lowers one or more node-graph documents into a Program. Exactly one
// document must contribute a workflow named "main"; duplicate workflow names
// across documents are fatal.
func Parse(sources ...[]byte) (*ast.Program, error) {
	prog := &ast.Program{
		Globals:   map[string]types.Value{},
		Externals: map[string]*ast.Workflow{},
	}
	seen := map[string]bool{}
	haveMain := false

	for _, source := range sources {
		if len(source) > MaxSourceSize {
			return nil, &ParseError{Message: fmt.Sprintf("document size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
		}
		var doc document
		if err := yaml.Unmarshal(source, &doc); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid document: %v", err)}
		}
		for k, v := range doc.Globals {
			prog.Globals[k] = types.ValueFromJSON(v)
		}
		for _, wd := range doc.Workflows {
			if wd.Name == "" {
				return nil, &ParseError{Message: "workflow missing required 'name' field"}
			}
			if seen[wd.Name] {
				return nil, &ParseError{Workflow: wd.Name, Message: "duplicate workflow name across documents"}
			}
			seen[wd.Name] = true

			wf, err := lowerWorkflow(wd)
			if err != nil {
				return nil, err
			}
			if wd.Name == "main" {
				prog.Main = wf
				haveMain = true
			} else {
				prog.Externals[wd.Name] = wf
			}
		}
	}
	if !haveMain {
		return nil, &ParseError{Message: "no document contributes a workflow named 'main'"}
	}
	return prog, nil
}

func lowerWorkflow(wd workflowDoc) (*ast.Workflow, error) {
	p := &wfParser{
		workflowName: wd.Name,
		nodes:        wd.Nodes,
		reporters:    map[string]ast.Expression{},
		resolving:    map[string]bool{},
		branches:     map[string]*ast.Block{},
	}

	if _, ok := wd.Nodes[startNodeID]; !ok {
		return nil, &ParseError{Workflow: wd.Name, Message: "missing required 'start' node"}
	}
	if wd.Nodes[startNodeID].Opcode != startOpcode {
		return nil, &ParseError{Workflow: wd.Name, Node: startNodeID,
			Message: fmt.Sprintf("start node must have opcode %q, got %q", startOpcode, wd.Nodes[startNodeID].Opcode)}
	}

	body, err := p.lowerChain(startNodeID)
	if err != nil {
		return nil, err
	}

	locals := make(map[string]types.Value, len(wd.Variables))
	for k, v := range wd.Variables {
		locals[k] = types.ValueFromJSON(v)
	}

	return &ast.Workflow{
		Name:        wd.Name,
		Params:      wd.Interface.Inputs,
		Body:        body,
		Locals:      locals,
		Description: wd.Description,
	}, nil
}

// lowerChain follows `next` links from id, lowering each node into a
// Statement, and returns the resulting Block.
func (p *wfParser) lowerChain(id string) (*ast.Block, error) {
	if cached, ok := p.branches[id]; ok {
		return cached, nil
	}
	block := &ast.Block{}
	p.branches[id] = block // memoize before recursing, tolerating shared suffixes

	cur := id
	first := true
	var stmts []ast.Statement
	for {
		nd, ok := p.nodes[cur]
		if !ok {
			return nil, &ParseError{Workflow: p.workflowName, Node: cur, Message: "referenced node id not found"}
		}
		if first && cur == startNodeID {
			first = false
			if nd.Next == nil {
				break
			}
			cur = *nd.Next
			continue
		}
		stmt, err := p.lowerNode(cur, nd)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if nd.Next == nil {
			break
		}
		cur = *nd.Next
	}
	block.Statements = stmts
	return block, nil
}

// lowerNode dispatches a single node to its Statement variant by opcode.
func (p *wfParser) lowerNode(id string, nd nodeDoc) (ast.Statement, error) {
	switch nd.Opcode {
	case "data_set_variable_to", "assign":
		name, err := p.reqLiteralString(id, nd, "VARIABLE")
		if err != nil {
			return nil, err
		}
		val, err := p.reqExpr(id, nd, "VALUE")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.Assign{Name: name, Value: val}), nil

	case "workflow_return", "return":
		values, err := p.exprSeq(id, nd, "VALUE")
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			if v, ok := nd.Inputs["VALUE"]; ok {
				e, err := p.lowerInput(id, "VALUE", v)
				if err != nil {
					return nil, err
				}
				values = []ast.Expression{e}
			}
		}
		return ast.WithID(id, &ast.Return{Values: values}), nil

	case "workflow_call", "call":
		name, err := p.reqLiteralString(id, nd, "WORKFLOW")
		if err != nil {
			return nil, err
		}
		args, err := p.exprSeq(id, nd, "ARG")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.ExprStmt{Expr: &ast.Call{Name: name, Args: args}}), nil

	case "control_if", "control_if_else":
		cond, err := p.reqExpr(id, nd, "CONDITION")
		if err != nil {
			return nil, err
		}
		thenBlk, err := p.reqBranch(id, nd, "THEN")
		if err != nil {
			return nil, err
		}
		var elseStmt ast.Statement
		if _, ok := nd.Inputs["ELSE"]; ok {
			elseBlk, err := p.reqBranch(id, nd, "ELSE")
			if err != nil {
				return nil, err
			}
			elseStmt = elseBlk
		}
		return ast.WithID(id, &ast.If{Cond: cond, Then: thenBlk, Else: elseStmt}), nil

	case "control_while":
		cond, err := p.reqExpr(id, nd, "CONDITION")
		if err != nil {
			return nil, err
		}
		body, err := p.reqBranch(id, nd, "BODY")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.While{Cond: cond, Body: body}), nil

	case "control_for":
		v, err := p.reqLiteralString(id, nd, "VAR")
		if err != nil {
			return nil, err
		}
		start, err := p.reqExpr(id, nd, "START")
		if err != nil {
			return nil, err
		}
		end, err := p.reqExpr(id, nd, "END")
		if err != nil {
			return nil, err
		}
		var step ast.Expression
		if _, ok := nd.Inputs["STEP"]; ok {
			step, err = p.reqExpr(id, nd, "STEP")
			if err != nil {
				return nil, err
			}
		}
		body, err := p.reqBranch(id, nd, "BODY")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.For{Var: v, Start: start, End: end, Step: step, Body: body}), nil

	case "control_foreach":
		v, err := p.reqLiteralString(id, nd, "VAR")
		if err != nil {
			return nil, err
		}
		iter, err := p.reqExpr(id, nd, "ITERABLE")
		if err != nil {
			return nil, err
		}
		body, err := p.reqBranch(id, nd, "BODY")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.ForEach{Var: v, Iterable: iter, Body: body}), nil

	case "control_async_foreach":
		v, err := p.reqLiteralString(id, nd, "VAR")
		if err != nil {
			return nil, err
		}
		iter, err := p.reqExpr(id, nd, "ITERABLE")
		if err != nil {
			return nil, err
		}
		body, err := p.reqBranch(id, nd, "BODY")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.AsyncForEach{Var: v, Iterable: iter, Body: body}), nil

	case "control_fork":
		branches, err := p.branchSeq(id, nd, "BRANCH")
		if err != nil {
			return nil, err
		}
		if len(branches) == 0 {
			return nil, &ParseError{Workflow: p.workflowName, Node: id, Field: "BRANCH1", Message: "control_fork requires at least one branch"}
		}
		stmts := make([]ast.Statement, len(branches))
		for i, b := range branches {
			stmts[i] = b
		}
		return ast.WithID(id, &ast.Fork{Branches: stmts}), nil

	case "control_spawn":
		body, err := p.reqBranch(id, nd, "BODY")
		if err != nil {
			return nil, err
		}
		var v string
		if _, ok := nd.Inputs["VAR"]; ok {
			v, err = p.reqLiteralString(id, nd, "VAR")
			if err != nil {
				return nil, err
			}
		}
		return ast.WithID(id, &ast.Spawn{Var: v, Body: body}), nil

	case "async_timeout":
		secs, err := p.reqExpr(id, nd, "TIMEOUT")
		if err != nil {
			return nil, err
		}
		body, err := p.reqBranch(id, nd, "BODY")
		if err != nil {
			return nil, err
		}
		var onTimeout ast.Statement
		if _, ok := nd.Inputs["ON_TIMEOUT"]; ok {
			onTimeout, err = p.reqBranch(id, nd, "ON_TIMEOUT")
			if err != nil {
				return nil, err
			}
		}
		return ast.WithID(id, &ast.Timeout{Seconds: secs, Body: body, OnTimeout: onTimeout}), nil

	case "control_with":
		resource, err := p.reqExpr(id, nd, "RESOURCE")
		if err != nil {
			return nil, err
		}
		v, err := p.reqLiteralString(id, nd, "VAR")
		if err != nil {
			return nil, err
		}
		body, err := p.reqBranch(id, nd, "BODY")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.With{Resource: resource, Var: v, Body: body}), nil

	case "control_try":
		tryBlk, err := p.reqBranch(id, nd, "TRY")
		if err != nil {
			return nil, err
		}
		handlers, err := p.catchSeq(id, nd, "CATCH")
		if err != nil {
			return nil, err
		}
		var finally ast.Statement
		if _, ok := nd.Inputs["FINALLY"]; ok {
			fin, err := p.reqBranch(id, nd, "FINALLY")
			if err != nil {
				return nil, err
			}
			finally = fin
		}
		return ast.WithID(id, &ast.Try{Body: tryBlk, Handlers: handlers, Finally: finally}), nil

	case "control_throw":
		val, err := p.reqExpr(id, nd, "VALUE")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.Throw{Value: val}), nil

	default:
		args, err := p.exprSeq(id, nd, "ARG")
		if err != nil {
			return nil, err
		}
		return ast.WithID(id, &ast.OpStmt{Name: nd.Opcode, Args: args}), nil
	}
}

// lowerInput turns one InputDoc into an Expression.
func (p *wfParser) lowerInput(nodeID, field string, in inputDoc) (ast.Expression, error) {
	switch in.Kind {
	case "literal":
		return &ast.Literal{Value: types.ValueFromJSON(in.Literal)}, nil
	case "variable":
		return &ast.Variable{Name: in.Ref}, nil
	case "node":
		return p.lowerReporter(nodeID, field, in.Ref)
	case "workflow_call":
		return &ast.Call{Name: in.Ref, Args: nil}, nil
	case "branch":
		return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "branch input is only valid in control-flow position"}
	default:
		return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "malformed input"}
	}
}

// lowerReporter resolves a {node: ID} input: the referenced node's opcode
// decides whether it lowers to Variable, Call, or Opcode. Its own `next` is
// ignored — reporters are single-valued. Cyclic reporter references are
// detected and rejected.
func (p *wfParser) lowerReporter(fromID, field, id string) (ast.Expression, error) {
	if cached, ok := p.reporters[id]; ok {
		return cached, nil
	}
	if p.resolving[id] {
		return nil, &ParseError{Workflow: p.workflowName, Node: fromID, Field: field,
			Message: fmt.Sprintf("reporter cycle detected at node %q", id)}
	}
	nd, ok := p.nodes[id]
	if !ok {
		return nil, &ParseError{Workflow: p.workflowName, Node: fromID, Field: field, Message: "reporter node id not found: " + id}
	}
	p.resolving[id] = true
	defer delete(p.resolving, id)

	var expr ast.Expression
	var err error
	switch nd.Opcode {
	case "data_get_variable":
		name, e := p.reqLiteralString(id, nd, "VARIABLE")
		if e != nil {
			return nil, e
		}
		expr = &ast.Variable{Name: name}
	case "workflow_call", "call":
		name, e := p.reqLiteralString(id, nd, "WORKFLOW")
		if e != nil {
			return nil, e
		}
		args, e := p.exprSeq(id, nd, "ARG")
		if e != nil {
			return nil, e
		}
		expr = &ast.Call{Name: name, Args: args}
	default:
		args, e := p.exprSeq(id, nd, "ARG")
		if e != nil {
			return nil, e
		}
		expr = &ast.Opcode{Name: nd.Opcode, Args: args}
	}
	if err != nil {
		return nil, err
	}
	p.reporters[id] = expr
	return expr, nil
}

func (p *wfParser) reqExpr(nodeID string, nd nodeDoc, field string) (ast.Expression, error) {
	in, ok := nd.Inputs[field]
	if !ok {
		return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "required input missing"}
	}
	return p.lowerInput(nodeID, field, in)
}

func (p *wfParser) reqLiteralString(nodeID string, nd nodeDoc, field string) (string, error) {
	in, ok := nd.Inputs[field]
	if !ok {
		return "", &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "required input missing"}
	}
	if in.Kind != "literal" {
		return "", &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "input must be a literal name"}
	}
	s, ok := in.Literal.(string)
	if !ok {
		return "", &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "literal must be a string"}
	}
	return s, nil
}

func (p *wfParser) reqBranch(nodeID string, nd nodeDoc, field string) (*ast.Block, error) {
	in, ok := nd.Inputs[field]
	if !ok {
		return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "required branch missing"}
	}
	if in.Kind != "branch" {
		return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: field, Message: "input must be a branch reference"}
	}
	return p.lowerChain(in.Ref)
}

// exprSeq collects prefix1, prefix2, ... inputs in order until one is missing.
func (p *wfParser) exprSeq(nodeID string, nd nodeDoc, prefix string) ([]ast.Expression, error) {
	var out []ast.Expression
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		in, ok := nd.Inputs[key]
		if !ok {
			break
		}
		e, err := p.lowerInput(nodeID, key, in)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// branchSeq collects prefix1, prefix2, ... branch references in order.
func (p *wfParser) branchSeq(nodeID string, nd nodeDoc, prefix string) ([]*ast.Block, error) {
	var out []*ast.Block
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		in, ok := nd.Inputs[key]
		if !ok {
			break
		}
		if in.Kind != "branch" {
			return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: key, Message: "input must be a branch reference"}
		}
		blk, err := p.lowerChain(in.Ref)
		if err != nil {
			return nil, err
		}
		out = append(out, blk)
	}
	return out, nil
}

// catchSeq collects CATCH1, CATCH2, ... handlers. Each handler's branch root
// node carries the handler's own metadata: opcode "control_catch" with
// optional EXCEPTION_TYPE/VAR literal inputs, and `next` continuing into the
// handler body.
func (p *wfParser) catchSeq(nodeID string, nd nodeDoc, prefix string) ([]ast.CatchHandler, error) {
	var out []ast.CatchHandler
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		in, ok := nd.Inputs[key]
		if !ok {
			break
		}
		if in.Kind != "branch" {
			return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: key, Message: "input must be a branch reference"}
		}
		head, ok := p.nodes[in.Ref]
		if !ok {
			return nil, &ParseError{Workflow: p.workflowName, Node: nodeID, Field: key, Message: "catch handler node id not found"}
		}
		if head.Opcode != "control_catch" {
			return nil, &ParseError{Workflow: p.workflowName, Node: in.Ref, Field: key, Message: "catch handler root must have opcode control_catch"}
		}
		var kind, v string
		if _, ok := head.Inputs["EXCEPTION_TYPE"]; ok {
			k, err := p.reqLiteralString(in.Ref, head, "EXCEPTION_TYPE")
			if err != nil {
				return nil, err
			}
			kind = k
		}
		if _, ok := head.Inputs["VAR"]; ok {
			vv, err := p.reqLiteralString(in.Ref, head, "VAR")
			if err != nil {
				return nil, err
			}
			v = vv
		}
		var bodyStmts []ast.Statement
		if head.Next != nil {
			blk, err := p.lowerChain(*head.Next)
			if err != nil {
				return nil, err
			}
			bodyStmts = blk.Statements
		}
		out = append(out, ast.CatchHandler{Kind: kind, Var: v, Body: &ast.Block{Statements: bodyStmts}})
	}
	return out, nil
}
