package ingest

func codeColumn(header, example string) Column {
	return Column{
		Field:    "code",
		Header:   header,
		Aliases:  []string{"编码"},
		Required: true,
		Example:  example,
		Upper:    true,
	}
}

func nameColumn(header, example string) Column {
	return Column{
		Field:    "name",
		Header:   header,
		Aliases:  []string{"名称"},
		Required: true,
		Example:  example,
	}
}

func descriptionColumn() Column {
	return Column{Field: "description", Header: "描述"}
}

func activeColumn() Column {
	return Column{
		Field:     "is_active",
		Header:    "启用状态",
		Aliases:   []string{"启用", "isActive"},
		Type:      TypeBool,
		Default:   "true",
		Example:   "true",
		ExportKey: "isActive",
	}
}

// parentColumn is a column naming a parent record by code or name.
func parentColumn(field, header string, aliases []string, entity, idField, example string) Column {
	return Column{
		Field:   field,
		Header:  header,
		Aliases: aliases,
		Example: example,
		Upper:   true,
		Ref:     &Reference{Entity: entity, Field: idField},
	}
}

// BuiltinEntities returns the entities bulkport knows out of the box.
func BuiltinEntities() []*Entity {
	return []*Entity{
		{
			Name:     "plants",
			Title:    "厂区",
			Endpoint: "/apps/master-data/factory/plants",
			Columns: []Column{
				codeColumn("厂区编码", "PLANT01"),
				nameColumn("厂区名称", "一号厂区"),
				{Field: "address", Header: "地址", Example: "工业园区 1 号"},
				descriptionColumn(),
			},
		},
		{
			Name:     "workshops",
			Title:    "车间",
			Endpoint: "/apps/master-data/factory/workshops",
			Columns: []Column{
				codeColumn("车间编码", "WS01"),
				nameColumn("车间名称", "装配车间"),
				descriptionColumn(),
				activeColumn(),
			},
		},
		{
			Name:     "production-lines",
			Title:    "产线",
			Endpoint: "/apps/master-data/factory/production-lines",
			Columns: []Column{
				codeColumn("产线编码", "PL01"),
				nameColumn("产线名称", "一号产线"),
				parentColumn("workshop_code", "所属车间", []string{"车间", "车间编码", "workshopCode"},
					"workshops", "workshop_id", "WS01"),
				descriptionColumn(),
				activeColumn(),
			},
		},
		{
			Name:     "workstations",
			Title:    "工位",
			Endpoint: "/apps/master-data/factory/workstations",
			Columns: []Column{
				codeColumn("工位编码", "ST01"),
				nameColumn("工位名称", "一号工位"),
				parentColumn("production_line_code", "所属产线", []string{"产线", "产线编码", "productionLineCode"},
					"production-lines", "production_line_id", "PL01"),
				descriptionColumn(),
				activeColumn(),
			},
		},
		{
			Name:     "work-centers",
			Title:    "工作中心",
			Endpoint: "/apps/master-data/factory/work-centers",
			Columns: []Column{
				codeColumn("工作中心编码", "WC01"),
				nameColumn("工作中心名称", "机加工中心"),
				descriptionColumn(),
				activeColumn(),
			},
		},
		{
			Name:     "warehouses",
			Title:    "仓库",
			Endpoint: "/apps/master-data/warehouse/warehouses",
			Columns: []Column{
				codeColumn("仓库编码", "WH01"),
				nameColumn("仓库名称", "原料仓"),
				descriptionColumn(),
				activeColumn(),
			},
		},
		{
			Name:     "storage-areas",
			Title:    "库区",
			Endpoint: "/apps/master-data/warehouse/storage-areas",
			Columns: []Column{
				codeColumn("库区编码", "SA01"),
				nameColumn("库区名称", "A 区"),
				parentColumn("warehouse_code", "所属仓库", []string{"仓库", "仓库编码", "warehouseCode"},
					"warehouses", "warehouse_id", "WH01"),
				descriptionColumn(),
			},
		},
		{
			Name:     "storage-locations",
			Title:    "库位",
			Endpoint: "/apps/master-data/warehouse/storage-locations",
			Columns: []Column{
				codeColumn("库位编码", "SL01"),
				nameColumn("库位名称", "A-01-01"),
				parentColumn("storage_area_code", "所属库区", []string{"库区", "库区编码", "storageAreaCode"},
					"storage-areas", "storage_area_id", "SA01"),
				descriptionColumn(),
			},
		},
		{
			Name:     "defect-types",
			Title:    "不良品类型",
			Endpoint: "/apps/master-data/process/defect-types",
			Columns: []Column{
				codeColumn("不良品编码", "DF01"),
				nameColumn("不良品名称", "划伤"),
				{Field: "category", Header: "分类", Example: "外观"},
				descriptionColumn(),
			},
		},
		{
			Name:     "materials",
			Title:    "物料",
			Endpoint: "/apps/master-data/materials",
			Columns: []Column{
				codeColumn("物料编码", "M0001"),
				nameColumn("物料名称", "螺栓 M6"),
				{Field: "specification", Header: "规格", Example: "M6x20"},
				{Field: "base_unit", Header: "基本单位", Aliases: []string{"单位", "unit"}, Example: "个"},
				descriptionColumn(),
			},
		},
		{
			Name:     "material-batches",
			Title:    "物料批次",
			Endpoint: "/apps/master-data/materials/batches",
			Paging:   PagingPage,
			Columns: []Column{
				{
					Field: "material_code", Header: "物料编码", Aliases: []string{"物料", "materialCode"},
					Required: true, Example: "M0001", Upper: true,
					Ref: &Reference{Entity: "materials", Field: "material_uuid", IDKey: "uuid"},
				},
				{Field: "batch_no", Header: "批次号", Aliases: []string{"batchNo"}, Required: true, Example: "B20240101"},
				{Field: "quantity", Header: "数量", Type: TypeFloat, Example: "100"},
				{Field: "production_date", Header: "生产日期", Example: "2024-01-01"},
				{Field: "expiry_date", Header: "有效期至", Example: "2025-01-01"},
				{Field: "supplier_batch_no", Header: "供应商批次号", Example: "SUP-001"},
				{Field: "remark", Header: "备注"},
			},
		},
		{
			Name:     "departments",
			Title:    "部门",
			Endpoint: "/core/departments",
			Paging:   PagingPage,
			Columns: []Column{
				codeColumn("部门编码", "D001"),
				nameColumn("部门名称", "生产部"),
				parentColumn("parent_code", "上级部门", []string{"parent", "parentCode"},
					"departments", "parent_id", ""),
				descriptionColumn(),
			},
		},
		{
			Name:     "positions",
			Title:    "职位",
			Endpoint: "/core/positions",
			Paging:   PagingPage,
			Columns: []Column{
				codeColumn("职位编码", "P001"),
				nameColumn("职位名称", "班组长"),
				parentColumn("department_code", "所属部门", []string{"部门", "department"},
					"departments", "department_id", "D001"),
				descriptionColumn(),
			},
		},
		{
			Name:     "roles",
			Title:    "角色",
			Endpoint: "/core/roles",
			Paging:   PagingPage,
			Columns: []Column{
				codeColumn("角色编码", "OPERATOR"),
				nameColumn("角色名称", "操作员"),
				descriptionColumn(),
			},
		},
		{
			Name:     "users",
			Title:    "用户",
			Endpoint: "/core/users",
			Paging:   PagingPage,
			Columns: []Column{
				{Field: "username", Header: "用户名", Required: true, Example: "zhangsan"},
				{Field: "password", Header: "密码", Required: true, Example: "Passw0rd!"},
				{Field: "full_name", Header: "姓名", Aliases: []string{"fullName"}, Example: "张三"},
				{Field: "email", Header: "邮箱", Example: "zhangsan@example.com"},
				{Field: "phone", Header: "手机号", Example: "13800000000"},
				{
					Field: "department", Header: "部门", Example: "D001",
					Ref: &Reference{Entity: "departments", Field: "department_id"},
				},
				{
					Field: "position", Header: "职位", Example: "P001",
					Ref: &Reference{Entity: "positions", Field: "position_id"},
				},
				{
					Field: "roles", Header: "角色", Example: "OPERATOR",
					Ref: &Reference{Entity: "roles", Field: "role_ids", Multiple: true},
				},
			},
		},
		{
			Name:     "equipment",
			Title:    "设备",
			Endpoint: "/apps/kuaizhizao/equipment",
			Paging:   PagingPage,
			Columns: []Column{
				codeColumn("设备编码", "EQ001"),
				nameColumn("设备名称", "数控车床"),
				{Field: "model", Header: "型号", Example: "CK6140"},
				{Field: "manufacturer", Header: "制造商", Example: "沈阳机床"},
				parentColumn("workstation_code", "所属工位", []string{"工位", "workstationCode"},
					"workstations", "workstation_id", "ST01"),
				{Field: "purchase_date", Header: "购置日期", Example: "2023-06-01"},
				activeColumn(),
			},
		},
	}
}

// BuiltinRegistry returns a registry of the built-in entities.
func BuiltinRegistry() *Registry {
	r, err := NewRegistry(BuiltinEntities()...)
	if err != nil {
		panic(err) // built-in definitions are static
	}
	return r
}
