package zcldef

import (
	_ "embed"
	"fmt"
)

//go:embed zcldef.json
var embeddedDefinition []byte

type ZCLDefService interface {
	GetById(clusterId uint16) ClusterDefinition
	GetByName(clusterName string) (ClusterDefinition, bool)
	ResolveAttribute(clusterName string, attributeName string) (ClusterDefinition, AttributeDefinition, error)
}

type zclDefService struct {
	zclDefMap map[uint16]ClusterDefinition
	byName    map[string]uint16
}

func (zd *zclDefService) GetById(clusterId uint16) ClusterDefinition {
	if def, ok := zd.zclDefMap[clusterId]; ok {
		return def
	}

	return ClusterDefinition{
		ID:   clusterId,
		Name: fmt.Sprintf("0x%04x", clusterId),
	}
}

func (zd *zclDefService) GetByName(clusterName string) (ClusterDefinition, bool) {
	id, ok := zd.byName[clusterName]
	if !ok {
		return ClusterDefinition{}, false
	}

	return zd.zclDefMap[id], true
}

func (zd *zclDefService) ResolveAttribute(clusterName string, attributeName string) (ClusterDefinition, AttributeDefinition, error) {
	cluster, ok := zd.GetByName(clusterName)
	if !ok {
		return ClusterDefinition{}, AttributeDefinition{}, fmt.Errorf("unknown cluster %q", clusterName)
	}

	attr, ok := cluster.AttributeByName(attributeName)
	if !ok {
		return ClusterDefinition{}, AttributeDefinition{}, fmt.Errorf("unknown attribute %q in cluster %q", attributeName, clusterName)
	}

	return cluster, attr, nil
}

// New loads the cluster dictionary from filename, or the built-in one when filename is empty.
func New(filename string) (ZCLDefService, error) {
	var (
		zclDef map[uint16]ClusterDefinition
		err    error
	)

	if filename == "" {
		zclDef, err = parse(embeddedDefinition)
	} else {
		zclDef, err = loadFromFile(filename)
	}
	if err != nil {
		return nil, err
	}

	byName := make(map[string]uint16, len(zclDef))
	for id, def := range zclDef {
		byName[def.Name] = id
	}

	return &zclDefService{
		zclDefMap: zclDef,
		byName:    byName,
	}, nil
}

// Default returns the built-in dictionary. It panics if the embedded JSON is broken.
func Default() ZCLDefService {
	svc, err := New("")
	if err != nil {
		panic(err)
	}

	return svc
}
